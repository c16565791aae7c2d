// Package handlers provides HTTP handlers for the embed, widget, auth and health endpoints
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/services"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case services.IsNotFound(err):
		return http.StatusNotFound
	case services.IsClientError(err), errors.Is(err, banner.ErrUnsupportedTrigger):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// publicBaseURL is the origin written into snippets and the loader. PUBLIC_BASE_URL wins
// over the request host so proxies do not leak internal names.
func publicBaseURL(c *gin.Context) string {
	if config.PublicBaseURL != "" {
		return config.PublicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}
