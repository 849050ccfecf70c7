package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/naruebet/cafe-reservation/internal/engine"
)

// AdminHandler serves the staff endpoints: full listings, occupancy
// snapshots and the maintenance operations.  Routes are gated behind the
// ADMIN role by the router.
type AdminHandler struct {
	Eng *engine.Engine
	Log *zap.Logger
}

func NewAdminHandler(eng *engine.Engine, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Eng: eng, Log: log}
}

// ListAll handles GET /v1/admin/reservations across all users.
func (h *AdminHandler) ListAll(c echo.Context) error {
	includePast := c.QueryParam("include_past") == "true"
	list, err := h.Eng.GetAllReservations(c.Request().Context(), includePast)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// Occupancy handles GET /v1/admin/occupancy/:date and returns the raw
// per-table snapshot for the day.
func (h *AdminHandler) Occupancy(c echo.Context) error {
	date := c.Param("date")
	occ, err := h.Eng.GetDailyOccupancySnapshot(c.Request().Context(), date)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "tables": occ})
}

// Purge handles POST /v1/admin/purge and deletes reservations dated before
// today.
func (h *AdminHandler) Purge(c echo.Context) error {
	count, err := h.Eng.PurgePastReservations(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	h.Log.Info("past reservations purged", zap.Int("count", count))
	return c.JSON(http.StatusOK, echo.Map{"purged": count})
}

// Rebuild handles POST /v1/admin/rebuild and reconstructs every occupancy
// document from the reservation ledger.
func (h *AdminHandler) Rebuild(c echo.Context) error {
	days, err := h.Eng.RebuildOccupancy(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	h.Log.Info("occupancy rebuilt", zap.Int("days", days))
	return c.JSON(http.StatusOK, echo.Map{"days": days})
}
