// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v3"

	"github.com/stroomalert/stroomalert/app/dto"
	"github.com/stroomalert/stroomalert/config"
)

// APIKeyMiddleware gates control endpoints behind a static API key. Read
// endpoints stay open; only mutating routes are wrapped with it.
type APIKeyMiddleware struct {
	cfg config.SecurityConfig
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(cfg config.SecurityConfig) *APIKeyMiddleware {
	return &APIKeyMiddleware{cfg: cfg}
}

// Require validates the configured API key header against the allowed keys.
// When RequireAPIKey is disabled the middleware passes every request through.
func (m *APIKeyMiddleware) Require() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !m.cfg.RequireAPIKey {
			return c.Next()
		}

		header := m.cfg.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}

		key := c.Get(header)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "API key is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_API_KEY",
				},
			})
		}

		for _, allowed := range m.cfg.AllowedAPIKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(allowed)) == 1 {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid API key",
			Error: dto.ErrorDetail{
				Code: "INVALID_API_KEY",
			},
		})
	}
}
