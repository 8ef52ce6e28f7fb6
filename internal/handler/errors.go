package handler

import (
	"errors"
	"strings"

	"go-productguard/internal/apperror"
	"go-productguard/internal/middleware"
	"go-productguard/internal/scope"
	"go-productguard/pkg/logger"
	"go-productguard/pkg/rowreader"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps the error taxonomy onto HTTP statuses. Anything outside
// it is logged and reported as a 500 without detail.
func respondError(c *fiber.Ctx, err error) error {
	var (
		valErr      *apperror.ValidationError
		locErr      *apperror.LocationRequiredError
		authErr     *apperror.AuthorizationError
		nfErr       *apperror.NotFoundError
		conflictErr *apperror.ConflictError
		colsErr     *rowreader.MissingColumnsError
	)

	switch {
	case errors.As(err, &valErr):
		return c.Status(400).JSON(fiber.Map{
			"error":   valErr.Message,
			"code":    "VALIDATION_ERROR",
			"details": valErr.Details,
		})
	case errors.As(err, &colsErr):
		return c.Status(400).JSON(fiber.Map{
			"error":          colsErr.Error(),
			"code":           "VALIDATION_ERROR",
			"missingColumns": colsErr.Columns,
		})
	case errors.Is(err, rowreader.ErrUnsupportedFormat):
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "VALIDATION_ERROR"})
	case errors.As(err, &locErr):
		return c.Status(400).JSON(fiber.Map{"error": locErr.Error(), "code": "LOCATION_REQUIRED"})
	case errors.As(err, &authErr):
		return c.Status(403).JSON(fiber.Map{"error": authErr.Error(), "code": "FORBIDDEN"})
	case errors.As(err, &nfErr):
		return c.Status(404).JSON(fiber.Map{"error": nfErr.Error(), "code": "NOT_FOUND"})
	case errors.As(err, &conflictErr):
		return c.Status(409).JSON(fiber.Map{"error": conflictErr.Message, "code": conflictErr.Code})
	}

	logger.FromCtx(c, zap.NewNop()).Error("request failed", zap.Error(err))
	return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(400).JSON(fiber.Map{"error": message, "code": "VALIDATION_ERROR"})
}

// callerScope returns the scope set by RequireAuth.
func callerScope(c *fiber.Ctx) (scope.Scope, error) {
	sc, ok := middleware.ScopeFrom(c)
	if !ok {
		return nil, apperror.Forbidden("no authenticated scope")
	}
	return sc, nil
}

// optionalCompany parses a companyId parameter; empty means not requested.
func optionalCompany(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation("invalid companyId", "companyId: must be a UUID")
	}
	return &id, nil
}
