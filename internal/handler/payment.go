package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/service"
)

// PaymentHandler serves the online checkout endpoints.
type PaymentHandler struct {
	Payments *service.PaymentService
}

// NewPaymentHandler panics on a nil service.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	if payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

// CreateOrder handles POST /v1/payment/order. amount is in whole currency
// units; the response carries the gateway amount in minor units.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	pay, err := h.Payments.CreateOrder(c.Request().Context(), p, body.Amount, body.Currency)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       pay.OrderID,
		"amount":   pay.Amount,
		"currency": pay.Currency,
		"receipt":  pay.Receipt,
		"status":   pay.Status,
	})
}

// verifyRequest accepts both plain and checkout-widget field names.
type verifyRequest struct {
	OrderID           string         `json:"order_id"`
	PaymentID         string         `json:"payment_id"`
	Signature         string         `json:"signature"`
	RazorpayOrderID   string         `json:"razorpay_order_id"`
	RazorpayPaymentID string         `json:"razorpay_payment_id"`
	RazorpaySignature string         `json:"razorpay_signature"`
	Booking           bookingRequest `json:"booking"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Verify handles POST /v1/payment/verify. A first successful verification
// returns 201; replays return the same booking with 200.
func (h *PaymentHandler) Verify(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body verifyRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, created, err := h.Payments.Verify(c.Request().Context(), p, service.VerifyInput{
		OrderID:   firstNonEmpty(body.OrderID, body.RazorpayOrderID),
		PaymentID: firstNonEmpty(body.PaymentID, body.RazorpayPaymentID),
		Signature: firstNonEmpty(body.Signature, body.RazorpaySignature),
		Draft:     body.Booking.draft(),
	})
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"message": "Payment verified", "booking": b})
}
