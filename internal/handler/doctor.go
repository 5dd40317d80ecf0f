package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-registration/internal/repository"
)

// DoctorHandler exposes read-only catalog browsing. Catalog rows are
// managed by admin tooling elsewhere.
type DoctorHandler struct {
	Doctors *repository.DoctorRepo
}

// NewDoctorHandler constructs a DoctorHandler.
func NewDoctorHandler(doctors *repository.DoctorRepo) *DoctorHandler {
	if doctors == nil {
		panic("nil repository passed to NewDoctorHandler")
	}
	return &DoctorHandler{Doctors: doctors}
}

// List handles GET /v1/doctors, optionally filtered by ?department_id=.
func (h *DoctorHandler) List(c echo.Context) error {
	var departmentID uint64
	if raw := c.QueryParam("department_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
		}
		departmentID = id
	}
	doctors, err := h.Doctors.List(c.Request().Context(), departmentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": doctors})
}

// Get handles GET /v1/doctors/:id.
func (h *DoctorHandler) Get(c echo.Context) error {
	doctorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || doctorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid doctor id"})
	}
	doctor, err := h.Doctors.GetByID(c.Request().Context(), doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrDoctorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "doctor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": doctor})
}
