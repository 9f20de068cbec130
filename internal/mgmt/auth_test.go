package mgmt

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestApp(cfg AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg, zerolog.Nop()))
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	app.Delete("/api/v1/admin", requireRole(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	app := authTestApp(AuthConfig{Mode: "api-key", APIKey: "k"})

	req, _ := http.NewRequest("GET", "/api/v1/ping", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_WrongScheme(t *testing.T) {
	app := authTestApp(AuthConfig{Mode: "api-key", APIKey: "k"})

	req, _ := http.NewRequest("GET", "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	app := authTestApp(AuthConfig{Mode: "api-key", APIKey: "k"})

	req, _ := http.NewRequest("GET", "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer k")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireRole_ReadOnlyBlocked(t *testing.T) {
	app := authTestApp(AuthConfig{
		Mode:  "api-key",
		Roles: map[string]Role{"ro-key": RoleReadOnly},
	})

	req, _ := http.NewRequest("DELETE", "/api/v1/admin", nil)
	req.Header.Set("Authorization", "Bearer ro-key")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	app := authTestApp(AuthConfig{Mode: "none"})

	req, _ := http.NewRequest("DELETE", "/api/v1/admin", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
