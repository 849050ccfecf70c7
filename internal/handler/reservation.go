package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/naruebet/cafe-reservation/internal/engine"
	"github.com/naruebet/cafe-reservation/internal/model"
	"github.com/naruebet/cafe-reservation/internal/queue"
	queue_publisher "github.com/naruebet/cafe-reservation/internal/service"
)

// ReservationHandler serves the customer-facing booking endpoints.  All
// seating decisions live in the engine; this layer binds requests, enforces
// the authenticated identity and translates engine sentinels into stable
// HTTP reason codes.
type ReservationHandler struct {
	Eng *engine.Engine
	Log *zap.Logger
}

func NewReservationHandler(eng *engine.Engine, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Eng: eng, Log: log}
}

// ----- DTOs -----

type createReservationReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Pax   int    `json:"pax"`
}

type modifyReservationReq struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type availabilityResp struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Pax       int    `json:"pax"`
	Available bool   `json:"available"`
}

// errStatus maps an engine sentinel to an HTTP status and a stable reason
// code.  Clients branch on the reason string, so these values are part of
// the API contract.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, engine.ErrUnavailable):
		return http.StatusConflict, "unavailable"
	case errors.Is(err, engine.ErrContention):
		return http.StatusServiceUnavailable, "contention"
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, engine.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func jsonError(c echo.Context, err error) error {
	status, reason := errStatus(err)
	return c.JSON(status, echo.Map{"error": reason})
}

// getUserID extracts the authenticated user ID injected by the JWT
// middleware.
func getUserID(c echo.Context) (string, bool) {
	s, ok := c.Get("user_id").(string)
	return s, ok && s != ""
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}

// Availability handles GET /v1/availability?date=&time=&pax=.  The answer is
// advisory; the create path re-validates transactionally.
func (h *ReservationHandler) Availability(c echo.Context) error {
	date := c.QueryParam("date")
	timeStr := c.QueryParam("time")
	pax, err := strconv.Atoi(c.QueryParam("pax"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input"})
	}

	ok, err := h.Eng.CheckAvailability(c.Request().Context(), date, timeStr, pax)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{Date: date, Time: timeStr, Pax: pax, Available: ok})
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input"})
	}

	res, err := h.Eng.CreateReservation(c.Request().Context(), engine.CreateRequest{
		UserID: uid,
		Name:   strings.TrimSpace(req.Name),
		Phone:  strings.TrimSpace(req.Phone),
		Date:   req.Date,
		Time:   req.Time,
		Pax:    req.Pax,
	})
	if err != nil {
		return jsonError(c, err)
	}

	h.publish(queue.KindReservationConfirmed, model.Reservation{
		ID: res.ReservationID, UserID: uid, Name: req.Name,
		Date: req.Date, Time: req.Time, Pax: req.Pax, Tables: res.Tables,
	})
	return c.JSON(http.StatusCreated, res)
}

// Mine handles GET /v1/reservations.  Past and cancelled entries are
// filtered out unless include_past=true.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	includePast := c.QueryParam("include_past") == "true"

	list, err := h.Eng.GetUserReservations(c.Request().Context(), uid, includePast)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// Modify handles PATCH /v1/reservations/:id and moves a reservation to a
// new date/time.
func (h *ReservationHandler) Modify(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	var req modifyReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input"})
	}

	err := h.Eng.ModifyReservation(c.Request().Context(), id, req.Date, req.Time, uid, isAdmin(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "date": req.Date, "time": req.Time})
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	res, err := h.Eng.CancelReservation(c.Request().Context(), id, uid, isAdmin(c))
	if err != nil {
		return jsonError(c, err)
	}

	h.publish(queue.KindReservationCancelled, *res)
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "status": res.Status})
}

// publish emits a reservation event in the background.  Event delivery is
// best effort and never blocks or fails the request.
func (h *ReservationHandler) publish(kind string, res model.Reservation) {
	ev := queue.ReservationEvent{
		Kind:          kind,
		ReservationID: res.ID,
		UserID:        res.UserID,
		Name:          res.Name,
		Date:          res.Date,
		Time:          res.Time,
		Pax:           res.Pax,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	for _, s := range res.Tables {
		ev.Tables = append(ev.Tables, queue.TableShare{TableID: s.TableID, Pax: s.Pax})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishReservationEvent(ctx, ev); err != nil {
			h.Log.Warn("reservation event publish failed",
				zap.String("kind", kind), zap.String("reservation_id", res.ID), zap.Error(err))
		}
	}()
}
