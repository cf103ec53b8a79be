package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/service"
)

// registerBookings mounts /v1/bookings. Customers create, list and cancel
// their own bookings; approved partners drive the job through its states.
// Admin routes on the same prefix live in registerAdmin.
func registerBookings(v1 *echo.Group, api API) {
	customer := middleware.RequireRole(service.RoleCustomer)
	partner := []echo.MiddlewareFunc{
		middleware.RequireRole(service.RolePartner),
		middleware.RequireApprovedPartner(api.PartnerGate),
	}
	h := api.Bookings

	v1.POST("/bookings", h.Create, customer)
	v1.GET("/bookings/my", h.Mine, customer)
	v1.PATCH("/bookings/:id/cancel", h.Cancel, customer)

	v1.PUT("/bookings/:id/pick", h.Pick, partner...)
	v1.PUT("/bookings/:id/confirm", h.Confirm, partner...)
	v1.PUT("/bookings/:id/mark-paid", h.MarkPaid, partner...)
	v1.PUT("/bookings/:id/complete", h.Complete, partner...)
	v1.PUT("/bookings/:id/reject", h.Reject, partner...)
}

// registerPayments mounts the online checkout endpoints.
func registerPayments(v1 *echo.Group, api API) {
	customer := middleware.RequireRole(service.RoleCustomer)
	v1.POST("/payment/order", api.Payments.CreateOrder, customer)
	v1.POST("/payment/verify", api.Payments.Verify, customer)
}
