package handler

import (
	"go-productguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.HotspotService
}

func NewDashboardHandler(s service.HotspotService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetHotspots returns FAKE scan locations for the map.
// Query params: companyId (admins only; partners always see their own)
func (h *DashboardHandler) GetHotspots(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := optionalCompany(c.Query("companyId"))
	if err != nil {
		return respondError(c, err)
	}

	points, err := h.service.Hotspots(c.UserContext(), sc, companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(points)
}

// GetOverviewStats returns scan and registry counters.
func (h *DashboardHandler) GetOverviewStats(c *fiber.Ctx) error {
	sc, err := callerScope(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := optionalCompany(c.Query("companyId"))
	if err != nil {
		return respondError(c, err)
	}

	stats, err := h.service.OverviewStats(c.UserContext(), sc, companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
