package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peereval-api/internal/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims middleware.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func identityApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		identity, ok := middleware.IdentityFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": identity.UserID, "role": identity.Role})
	})
	return app
}

func TestJWTProtectedResolvesIdentityFromSubject(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, middleware.Claims{
		Role: "TA",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := identityApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, uint(42), body.ID)
	require.Equal(t, "ta", body.Role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	expired := signToken(t, jwt.SigningMethodHS256, middleware.Claims{
		Role: "teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	anonymous := signToken(t, jwt.SigningMethodHS256, middleware.Claims{Role: "teacher"})

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage":        "Bearer not-a-token",
		"expired":        "Bearer " + expired,
		"no subject":     "Bearer " + anonymous,
	}

	app := identityApp()
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
