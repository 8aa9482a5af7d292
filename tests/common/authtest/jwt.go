//go:build unit || e2e

package authtest

import (
	"testing"
	"time"

	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/pkg/jwt"
	"scheduled-mailer/internal/usecase"

	"github.com/stretchr/testify/require"
)

type JWTHelper struct {
	cfg config.JWTConfig
}

func NewJWTHelper(cfg config.JWTConfig) *JWTHelper {
	return &JWTHelper{cfg: cfg}
}

// GenerateToken signs a token for the demo identity derived from email.
func (h *JWTHelper) GenerateToken(t *testing.T, email string) string {
	t.Helper()
	duration, err := time.ParseDuration(h.cfg.Duration)
	require.NoError(t, err)
	service := jwt.NewService(h.cfg.Secret, duration)
	token, err := service.GenerateToken(usecase.OwnerIDFor(email), email, "")
	require.NoError(t, err)
	return token
}

func (h *JWTHelper) CreateExpiredToken(t *testing.T, email string) string {
	t.Helper()
	service := jwt.NewService(h.cfg.Secret, time.Millisecond)
	token, err := service.GenerateToken(usecase.OwnerIDFor(email), email, "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	return token
}
