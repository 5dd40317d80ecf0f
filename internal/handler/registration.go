package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/repository"
	"github.com/iliyamo/hospital-registration/internal/service"
)

// RegistrationHandler exposes the booking surface: creating a
// registration (confirmed or waitlisted), cancelling one, and the
// patient/doctor order listings. Request validation happens here; the
// booking service trusts its inputs. All methods assume JWT
// authentication middleware ran first.
type RegistrationHandler struct {
	Booking  *service.BookingService
	Payments *service.PaymentService
	Orders   *repository.OrderRepo
}

// NewRegistrationHandler constructs a RegistrationHandler with its
// dependencies. All must be non-nil.
func NewRegistrationHandler(booking *service.BookingService, payments *service.PaymentService, orders *repository.OrderRepo) *RegistrationHandler {
	if booking == nil || payments == nil || orders == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Booking: booking, Payments: payments, Orders: orders}
}

// Create handles POST /v1/registrations. The body names the doctor,
// day and slot; the account comes from the token. A confirmed order
// with a paid tier additionally gets a payment raised for it — a
// best-effort step outside the booking transaction, so a payment
// failure still returns the successful booking.
func (h *RegistrationHandler) Create(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DepartmentID  uint64  `json:"department_id"`
		DoctorID      uint64  `json:"doctor_id"`
		Date          string  `json:"date"`
		Slot          string  `json:"slot"`
		Note          *string `json:"note"`
		Tier          string  `json:"tier"`
		ForceWaitlist bool    `json:"force_waitlist"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.DepartmentID == 0 || body.DoctorID == 0 || body.Date == "" || body.Slot == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "department_id, doctor_id, date and slot are required"})
	}
	tier := model.Tier(body.Tier)
	if body.Tier != "" && !tier.Known() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown tier"})
	}
	if body.Tier == "" {
		tier = model.TierGeneral
	}
	if _, err := model.NormalizeDate(body.Date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}

	order, err := h.Booking.Create(c.Request().Context(), service.CreateOrderInput{
		AccountID:     accountID,
		DepartmentID:  body.DepartmentID,
		DoctorID:      body.DoctorID,
		Date:          body.Date,
		Slot:          body.Slot,
		Note:          body.Note,
		ForceWaitlist: body.ForceWaitlist,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}

	payment, err := h.Payments.CreateForOrder(c.Request().Context(), order, tier)
	if err != nil {
		// The seat is already booked; a missing payment row is
		// recoverable by support tooling.
		log.Printf("registration: payment for order %d not created: %v", order.ID, err)
		payment = nil
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":          true,
		"data":             order,
		"payment":          payment,
		"payment_required": payment != nil,
	})
}

// Cancel handles DELETE /v1/registrations/:id. Cancelling an
// already-cancelled order succeeds idempotently.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	cancelledBy := c.QueryParam("cancelled_by")
	if cancelledBy == "" {
		cancelledBy = strconv.FormatUint(accountID, 10)
	}
	if _, err := h.Booking.Cancel(c.Request().Context(), orderID, cancelledBy); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListMine handles GET /v1/registrations. The default view includes
// waitlisted appointment requests with their queue position; the
// ?view=orders variant filters them out so only real bookings show.
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	withWaitlist := c.QueryParam("view") != "orders"
	items, err := h.Orders.ListByAccount(c.Request().Context(), accountID, withWaitlist)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}

// ListForDoctor handles GET /v1/doctors/:id/registrations. It returns
// a doctor's orders, optionally filtered by ?date=YYYY-MM-DD, for the
// doctor's day view. Role middleware restricts it to doctors/admins.
func (h *RegistrationHandler) ListForDoctor(c echo.Context) error {
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
	orders, err := h.Orders.ListByDoctorDate(c.Request().Context(), doctorID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": orders})
}
