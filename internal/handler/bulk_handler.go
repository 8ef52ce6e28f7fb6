package handler

import (
	"path/filepath"
	"strings"

	"go-productguard/internal/model"
	"go-productguard/internal/service"
	"go-productguard/pkg/rowreader"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BulkHandler struct {
	service service.BulkService
}

func NewBulkHandler(s service.BulkService) *BulkHandler {
	return &BulkHandler{service: s}
}

// Upload reads a .csv or .xlsx sheet and queues it for approval.
// POST /api/v1/bulk/upload (multipart: file, companyId)
func (h *BulkHandler) Upload(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := optionalCompany(c.FormValue("companyId"))
	if err != nil {
		return respondError(c, err)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return badRequest(c, "file could not be read")
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	rows, err := rowreader.Read(filename, file)
	if err != nil {
		return respondError(c, err)
	}

	id, err := h.service.Submit(c.UserContext(), sc, companyID, filename, rows)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"requestId": id,
		"message":   "Upload queued for approval",
	})
}

// List returns bulk requests, newest first.
// GET /api/v1/bulk-requests?companyId=
func (h *BulkHandler) List(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := optionalCompany(c.Query("companyId"))
	if err != nil {
		return respondError(c, err)
	}

	reqs, err := h.service.List(c.UserContext(), sc, companyID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]model.BulkRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, reqs[i].ToResponse())
	}
	return c.JSON(out)
}

func (h *BulkHandler) Get(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid ID format")
	}

	req, err := h.service.Get(c.UserContext(), sc, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req.ToResponse())
}

type DecisionRequest struct {
	Action string `json:"action"`
}

// Decide approves or rejects a pending request.
// POST /api/v1/bulk-requests/:id/decision {action}
func (h *BulkHandler) Decide(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid ID format")
	}

	var body DecisionRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	action := model.BulkAction(strings.ToUpper(strings.TrimSpace(body.Action)))

	req, err := h.service.Decide(c.UserContext(), sc, id, action)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req.ToResponse())
}
