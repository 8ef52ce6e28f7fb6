package handler

import (
	"errors"
	"strings"

	"go-productguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	response, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		return respondError(c, err)
	}
	return c.JSON(response)
}

// ChangePassword rotates the caller's password and ends other sessions.
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.Email == "" || req.OldPassword == "" || req.NewPassword == "" {
		return badRequest(c, "Email, old_password, and new_password are required")
	}
	if email, _ := c.Locals("user_email").(string); !strings.EqualFold(email, strings.TrimSpace(req.Email)) {
		return c.Status(403).JSON(fiber.Map{"error": "You can only change your own password", "code": "FORBIDDEN"})
	}

	err := h.authService.ChangePassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Password updated successfully"})
	case errors.Is(err, service.ErrWrongPassword), errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrUserNotFound):
		return badRequest(c, err.Error())
	}
	return respondError(c, err)
}

// ValidateToken reports whether a token still belongs to the live session.
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	token := ""
	if parts := strings.Split(c.Get("Authorization"), " "); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		token = parts[1]
	}
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		_ = c.BodyParser(&body)
		token = body.Token
	}
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"valid": false, "error": "Missing token"})
	}

	res, err := h.authService.ValidateToken(c.UserContext(), token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"valid": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"valid": true, "user": res.User})
}
