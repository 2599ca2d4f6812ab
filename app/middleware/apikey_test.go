package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/config"
)

func newGatedApp(cfg config.SecurityConfig) *fiber.App {
	app := fiber.New()
	gate := NewAPIKeyMiddleware(cfg)
	app.Post("/poll", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, gate.Require())
	return app
}

func TestAPIKeyDisabledPassesThrough(t *testing.T) {
	app := newGatedApp(config.SecurityConfig{RequireAPIKey: false})

	resp, err := app.Test(httptest.NewRequest("POST", "/poll", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := config.SecurityConfig{
		RequireAPIKey:  true,
		APIKeyHeader:   "X-API-Key",
		AllowedAPIKeys: []string{"valid-key"},
	}

	tests := []struct {
		name     string
		key      string
		expected int
	}{
		{name: "missing key", key: "", expected: fiber.StatusUnauthorized},
		{name: "wrong key", key: "nope", expected: fiber.StatusUnauthorized},
		{name: "valid key", key: "valid-key", expected: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGatedApp(cfg)
			req := httptest.NewRequest("POST", "/poll", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestAPIKeyDefaultHeader(t *testing.T) {
	app := newGatedApp(config.SecurityConfig{
		RequireAPIKey:  true,
		AllowedAPIKeys: []string{"valid-key"},
	})

	req := httptest.NewRequest("POST", "/poll", nil)
	req.Header.Set("X-API-Key", "valid-key")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
