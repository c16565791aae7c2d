// Package widgets defines the stored widget entity and its repository contract.
package widgets

import (
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
)

// Kind is the widget variant. Only KindCookie renders a consent banner.
type Kind string

const (
	KindCookie Kind = "cookie"
	KindSimple Kind = "simple"
	KindSmart  Kind = "smart"
)

var (
	ErrWidgetNotFound  = errors.New("widget not found")
	ErrUnsupportedKind = errors.New("unsupported widget kind")
	ErrUnknownKind     = errors.New("unknown widget kind")
)

// ParseKind maps a stored type string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCookie, KindSimple, KindSmart:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Mountable reports whether a runtime can mount this kind.
func (k Kind) Mountable() error {
	switch k {
	case KindCookie:
		return nil
	case KindSimple, KindSmart:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// Widget is one configured banner owned by a tenant.
type Widget struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Kind      Kind                 `json:"type"`
	Config    banner.Customization `json:"config"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// EmbedView is the public projection served to the live runtime.
type EmbedView struct {
	ID     string               `json:"id"`
	Type   Kind                 `json:"type"`
	Config banner.Customization `json:"config"`
}

// EmbedResponse is the body of GET /api/v1/embed/{widgetId}.
type EmbedResponse struct {
	Widget EmbedView `json:"widget"`
}

// Embed returns the public projection of w.
func (w *Widget) Embed() EmbedResponse {
	return EmbedResponse{Widget: EmbedView{ID: w.ID, Type: w.Kind, Config: w.Config}}
}

// Repository persists widgets per tenant.
type Repository interface {
	FindByID(tenantID, id string) (*Widget, error)
	FindAll(tenantID string) ([]*Widget, error)
	Store(tenantID string, w *Widget) error
	Update(tenantID string, w *Widget) error
	Delete(tenantID, id string) error
}
