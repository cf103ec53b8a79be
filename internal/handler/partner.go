package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/service"
)

// PartnerHandler serves the partner app: profile, duty, job lists and inbox.
type PartnerHandler struct {
	Partners *service.PartnerService
	Bookings *service.BookingService
}

// NewPartnerHandler panics on a nil service.
func NewPartnerHandler(partners *service.PartnerService, bookings *service.BookingService) *PartnerHandler {
	if partners == nil || bookings == nil {
		panic("nil service passed to NewPartnerHandler")
	}
	return &PartnerHandler{Partners: partners, Bookings: bookings}
}

// Register handles POST /v1/partners/register.
func (h *PartnerHandler) Register(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	partner, err := h.Partners.Register(c.Request().Context(), p, body.Name, body.Phone)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"partner": partner})
}

// Me handles GET /v1/partners/me. It is open to partners awaiting approval.
func (h *PartnerHandler) Me(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	partner, err := h.Partners.Get(c.Request().Context(), p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"partner": partner})
}

// SetDuty handles PUT /v1/partners/duty with body {"on_duty": bool}.
func (h *PartnerHandler) SetDuty(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		OnDuty *bool `json:"on_duty"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.OnDuty == nil {
		return badRequest(c, "on_duty is required")
	}
	partner, err := h.Partners.SetDuty(c.Request().Context(), p.ID, *body.OnDuty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Duty status updated", "partner": partner})
}

// SetPushToken handles PUT /v1/partners/push-token with body {"token": "..."}.
func (h *PartnerHandler) SetPushToken(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Partners.SetPushToken(c.Request().Context(), p.ID, body.Token); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Push token saved"})
}

// Available handles GET /v1/partners/bookings/available.
func (h *PartnerHandler) Available(c echo.Context) error {
	list, err := h.Bookings.ListAvailable(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// History handles GET /v1/partners/bookings/history.
func (h *PartnerHandler) History(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Bookings.ListForPartner(c.Request().Context(), p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Notifications handles GET /v1/partners/notifications.
func (h *PartnerHandler) Notifications(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Partners.Notifications(c.Request().Context(), p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

// MarkRead handles PATCH /v1/partners/notifications/:id/read.
func (h *PartnerHandler) MarkRead(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.Partners.MarkRead(c.Request().Context(), p.ID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}
