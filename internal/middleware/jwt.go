package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/peereval-api/internal/utils"
)

const localIdentity = "identity"

// Identity is the authenticated caller resolved from the bearer token.
type Identity struct {
	UserID uint
	Role   string
}

// Claims is the token payload issued by the platform's auth service.
type Claims struct {
	Role   string `json:"role"`
	UserID uint   `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token carries no user identifier")

// JWTProtected validates HMAC bearer tokens and stores the caller Identity on the request.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, token, found := strings.Cut(authorization, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims := &Claims{}
		parsed, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(localIdentity, identity)
		return c.Next()
	}
}

func identityFromClaims(claims *Claims) (Identity, error) {
	role := strings.ToLower(strings.TrimSpace(claims.Role))

	if claims.UserID != 0 {
		return Identity{UserID: claims.UserID, Role: role}, nil
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, errMissingSubject
	}
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, fmt.Errorf("invalid subject %q", subject)
	}

	return Identity{UserID: uint(id), Role: role}, nil
}

// IdentityFromContext returns the caller resolved by JWTProtected.
func IdentityFromContext(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(localIdentity).(Identity)
	return identity, ok && identity.UserID != 0
}

// WithIdentity stores identity on the request. Handlers under test use it in place of a token.
func WithIdentity(identity Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localIdentity, identity)
		return c.Next()
	}
}
