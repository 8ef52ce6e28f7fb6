package handler

import (
	"strings"

	"go-productguard/internal/model"
	"go-productguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RegistryHandler struct {
	service service.RegistryService
}

func NewRegistryHandler(s service.RegistryService) *RegistryHandler {
	return &RegistryHandler{service: s}
}

// CreateProduct registers a product and its codes immediately.
// POST /api/v1/products
func (h *RegistryHandler) CreateProduct(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	out, err := h.service.CreateProduct(c.UserContext(), sc, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(out)
}

// GET /api/v1/products?companyId=
func (h *RegistryHandler) ListProducts(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := optionalCompany(c.Query("companyId"))
	if err != nil {
		return respondError(c, err)
	}

	products, err := h.service.ListProducts(c.UserContext(), sc, companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

type CodeStatusRequest struct {
	Status string `json:"status"`
}

// PATCH /api/v1/qrcodes/:code/status {status}
func (h *RegistryHandler) SetCodeStatus(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	var body CodeStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	status := model.CodeStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	qr, err := h.service.SetCodeStatus(c.UserContext(), sc, c.Params("code"), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"code": qr.Code, "status": qr.Status})
}

// GET /api/v1/companies
func (h *RegistryHandler) ListCompanies(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companies, err := h.service.ListCompanies(c.UserContext(), sc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(companies)
}

// POST /api/v1/companies {name}
func (h *RegistryHandler) CreateCompany(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	company, err := h.service.CreateCompany(c.UserContext(), sc, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(company)
}

// POST /api/v1/users
func (h *RegistryHandler) CreateUser(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	user, err := h.service.CreateUser(c.UserContext(), sc, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(user.ToResponse())
}
