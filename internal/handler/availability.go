package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/repository"
)

// AvailabilityHandler exposes pool management for doctor/admin
// self-service tooling and the calendar reads the mini-program shows
// patients. Writes go through Upsert, which keeps every slot row of a
// day synchronized with the shared pool counters.
type AvailabilityHandler struct {
	Pools *repository.AvailabilityRepo
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(pools *repository.AvailabilityRepo) *AvailabilityHandler {
	if pools == nil {
		panic("nil repository passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Pools: pools}
}

// Upsert handles PUT /v1/doctors/:id/availability. It creates or
// updates the addressed slot and propagates capacity and tier metadata
// to every slot of the same day, returning all rows after the write.
func (h *AvailabilityHandler) Upsert(c echo.Context) error {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || doctorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid doctor id"})
	}
	var body struct {
		Date     string      `json:"date"`
		Slot     string      `json:"slot"`
		Capacity int         `json:"capacity"`
		Extra    model.Extra `json:"extra"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Date == "" || body.Slot == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and slot are required"})
	}
	date, err := model.NormalizeDate(body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	if err := body.Extra.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rows, err := h.Pools.Upsert(c.Request().Context(), doctorID, date, body.Slot, body.Capacity, body.Extra)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

// GetByDoctor handles GET /v1/doctors/:id/availability. An optional
// ?date=YYYY-MM-DD narrows the calendar to one day. Responses carry the
// derived available-by-tier counts for display.
func (h *AvailabilityHandler) GetByDoctor(c echo.Context) error {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || doctorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid doctor id"})
	}
	date := c.QueryParam("date")
	if date != "" {
		if date, err = model.NormalizeDate(date); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
	}
	rows, err := h.Pools.GetByDoctor(c.Request().Context(), doctorID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

// ListAll handles GET /v1/availability for admin tooling.
func (h *AvailabilityHandler) ListAll(c echo.Context) error {
	rows, err := h.Pools.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}
