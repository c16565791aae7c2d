package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleAdmin is the only dashboard role.
const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

// DashboardClaims identifies an authenticated dashboard session.
type DashboardClaims struct {
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateDashboardToken signs an HS256 token for tenantID valid for ttl.
func GenerateDashboardToken(tenantID, role, jwtSecret string, ttl time.Duration, now time.Time) (string, error) {
	if jwtSecret == "" {
		return "", errors.New("empty jwt secret")
	}
	claims := DashboardClaims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateULID(),
			Subject:   role,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateDashboardToken verifies the signature and expiry and that the token belongs to
// tenantID.
func ValidateDashboardToken(tokenString, tenantID, jwtSecret string) (*DashboardClaims, error) {
	claims := &DashboardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TenantID != tenantID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
