package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

// BookingHandler serves customer and partner booking endpoints.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

// bookingRequest is the POST /v1/bookings body. It doubles as the draft
// embedded in payment verification.
type bookingRequest struct {
	Customer       model.Customer   `json:"customer"`
	Items          []model.LineItem `json:"items"`
	TotalAmount    int64            `json:"total_amount"`
	Currency       string           `json:"currency"`
	SelectedDate   string           `json:"selected_date"`
	SelectedTime   string           `json:"selected_time"`
	PaymentMethod  string           `json:"payment_method"`
	PaymentOrderID string           `json:"payment_order_id"`
}

func (r bookingRequest) draft() service.BookingDraft {
	return service.BookingDraft{
		Customer:       r.Customer,
		Items:          r.Items,
		TotalAmount:    r.TotalAmount,
		Currency:       r.Currency,
		ScheduledDate:  r.SelectedDate,
		ScheduledTime:  r.SelectedTime,
		PaymentMethod:  r.PaymentMethod,
		PaymentOrderID: r.PaymentOrderID,
	}
}

// Create handles POST /v1/bookings. Cash bookings return 201; an online
// booking whose order already produced one returns it with 200.
func (h *BookingHandler) Create(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body bookingRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, created, err := h.Bookings.Create(c.Request().Context(), p, body.draft())
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"message": "Booking successful", "booking": b})
}

// Mine handles GET /v1/bookings/my.
func (h *BookingHandler) Mine(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Bookings.ListForUser(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Cancel handles PATCH /v1/bookings/:id/cancel with body {"reason": "..."}.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), p, c.Param("id"), body.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled", "booking": b})
}

type transitionFunc func(ctx context.Context, p service.Principal, id string) (*model.Booking, error)

// act runs one partner transition on the booking named in the path.
func (h *BookingHandler) act(c echo.Context, msg string, fn transitionFunc) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	b, err := fn(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "booking": b})
}

// Pick handles PUT /v1/bookings/:id/pick.
func (h *BookingHandler) Pick(c echo.Context) error {
	return h.act(c, "Booking picked successfully", h.Bookings.Claim)
}

// Confirm handles PUT /v1/bookings/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	return h.act(c, "Booking confirmed", h.Bookings.Confirm)
}

// MarkPaid handles PUT /v1/bookings/:id/mark-paid.
func (h *BookingHandler) MarkPaid(c echo.Context) error {
	return h.act(c, "Booking marked as paid", h.Bookings.MarkPaid)
}

// Complete handles PUT /v1/bookings/:id/complete.
func (h *BookingHandler) Complete(c echo.Context) error {
	return h.act(c, "Booking completed successfully", h.Bookings.Complete)
}

// Reject handles PUT /v1/bookings/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.act(c, "Booking rejected", h.Bookings.Reject)
}
