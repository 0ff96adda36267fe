package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoleApp(userID, userRole string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		if userRole != "" {
			c.Locals("user_role", userRole)
		}
		return c.Next()
	})
	app.Use(guard)
	app.Post("/publish", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsAuthorizedRoles(t *testing.T) {
	app := newRoleApp("lecturer-1", "Lecturer", RequireRole("lecturer", "admin"))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "role matching is case-insensitive")
}

func TestRequireRoleRejectsUnauthorizedRoles(t *testing.T) {
	app := newRoleApp("user-1", "participant", RequireRole("lecturer", "admin"))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	app := newRoleApp("user-1", "", RequireRole("lecturer"))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleRejectsAnonymousAsUnauthenticated(t *testing.T) {
	app := newRoleApp("", "", RequireRole("lecturer"))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
