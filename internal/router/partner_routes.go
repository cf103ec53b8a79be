package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/service"
)

// registerPartners mounts /v1/partners. Registration and the profile read
// are open to any partner account; the rest requires approval.
func registerPartners(v1 *echo.Group, api API) {
	role := middleware.RequireRole(service.RolePartner)
	h := api.Partners

	v1.POST("/partners/register", h.Register, role)
	v1.GET("/partners/me", h.Me, role)

	g := v1.Group("/partners", role, middleware.RequireApprovedPartner(api.PartnerGate))
	g.PUT("/duty", h.SetDuty)
	g.PUT("/push-token", h.SetPushToken)
	g.GET("/bookings/available", h.Available)
	g.GET("/bookings/history", h.History)
	g.GET("/notifications", h.Notifications)
	g.PATCH("/notifications/:id/read", h.MarkRead)
}

// registerAdmin mounts the back-office routes.
func registerAdmin(v1 *echo.Group, api API) {
	admin := middleware.RequireRole(service.RoleAdmin)
	h := api.Admin

	v1.GET("/bookings", h.ListBookings, admin)
	v1.GET("/bookings/:id", h.GetBooking, admin)
	v1.PUT("/bookings/:id", h.UpdateBooking, admin)

	v1.PUT("/admin/partners/:id/approve", h.ApprovePartner, admin)
	v1.PUT("/admin/partners/:id/reject", h.RejectPartner, admin)
}
