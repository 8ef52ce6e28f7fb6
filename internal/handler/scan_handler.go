package handler

import (
	"go-productguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ScanHandler struct {
	service service.VerificationService
}

func NewScanHandler(s service.VerificationService) *ScanHandler {
	return &ScanHandler{service: s}
}

type VerifyRequest struct {
	Code      string   `json:"code"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Verify checks a scanned code for the public verifier.
// POST /api/v1/scans/verify
func (h *ScanHandler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.service.Verify(c.UserContext(), req.Code, req.Latitude, req.Longitude)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
