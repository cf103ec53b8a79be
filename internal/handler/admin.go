package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

// AdminHandler serves back-office booking and partner management.
type AdminHandler struct {
	Bookings *service.BookingService
	Partners *service.PartnerService
}

// NewAdminHandler panics on a nil service.
func NewAdminHandler(bookings *service.BookingService, partners *service.PartnerService) *AdminHandler {
	if bookings == nil || partners == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Bookings: bookings, Partners: partners}
}

// ListBookings handles GET /v1/bookings?status=...
func (h *AdminHandler) ListBookings(c echo.Context) error {
	list, err := h.Bookings.ListAll(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// GetBooking handles GET /v1/bookings/:id and includes the linked payment.
func (h *AdminHandler) GetBooking(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := h.Bookings.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	pay, err := h.Bookings.PaymentFor(ctx, b)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b, "payment": pay})
}

// UpdateBooking handles PUT /v1/bookings/:id with body
// {"status": "...", "assigned_to": "..."}; either field may be omitted.
func (h *AdminHandler) UpdateBooking(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Status     *model.Status `json:"status"`
		AssignedTo *string       `json:"assigned_to"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.Bookings.AdminUpdate(c.Request().Context(), p, c.Param("id"), service.AdminUpdate{
		Status:     body.Status,
		AssignedTo: body.AssignedTo,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking updated", "booking": b})
}

// ApprovePartner handles PUT /v1/admin/partners/:id/approve.
func (h *AdminHandler) ApprovePartner(c echo.Context) error {
	partner, err := h.Partners.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Partner approved", "partner": partner})
}

// RejectPartner handles PUT /v1/admin/partners/:id/reject.
func (h *AdminHandler) RejectPartner(c echo.Context) error {
	partner, err := h.Partners.Reject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Partner rejected", "partner": partner})
}
