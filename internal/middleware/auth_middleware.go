package middleware

import (
	"strings"

	"go-productguard/internal/scope"
	"go-productguard/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// ScopeKey is the locals key holding the caller's scope.Scope.
const ScopeKey = "scope"

// RequireAuth validates the bearer token, re-checks the user against the
// database and stores the caller's scope for downstream handlers.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		if ok, err := authenticate(c, auth, parts[1]); !ok {
			return err
		}
		return c.Next()
	}
}

// RequireSocketAuth guards the websocket upgrade. Browsers cannot set headers
// on a websocket handshake, so the token travels in the "token" query
// parameter; a bearer header is accepted too.
func RequireSocketAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(c.Get("Authorization"), "Bearer "))
		}
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		if ok, err := authenticate(c, auth, token); !ok {
			return err
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		return c.Next()
	}
}

// authenticate stores the caller's scope. When it reports false the error
// response has already been written.
func authenticate(c *fiber.Ctx, auth service.AuthService, token string) (bool, error) {
	user, err := auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return false, c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	sc, err := scope.FromClaims(user.Role, user.ID.String(), user.CompanyID)
	if err != nil {
		return false, c.Status(403).JSON(fiber.Map{"error": err.Error(), "code": "FORBIDDEN"})
	}

	c.Locals(ScopeKey, sc)
	c.Locals("user_id", user.ID.String())
	c.Locals("user_email", user.Email)
	return true, nil
}

// RequireAdmin rejects partner sessions.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, ok := ScopeFrom(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if err := sc.RequireAdmin(); err != nil {
			return c.Status(403).JSON(fiber.Map{"error": err.Error(), "code": "FORBIDDEN"})
		}
		return c.Next()
	}
}

func ScopeFrom(c *fiber.Ctx) (scope.Scope, bool) {
	sc, ok := c.Locals(ScopeKey).(scope.Scope)
	return sc, ok
}
