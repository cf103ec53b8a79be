package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	"github.com/labstack/gommon/log"                // structured logger shared with the services

	"github.com/tintd/salon-dispatch/internal/handler"    // handlers that adapt HTTP to the services
	"github.com/tintd/salon-dispatch/internal/middleware" // JWT authentication, role checks and rate limiting
)

// New builds the Echo instance with the shared logger, panic recovery,
// request logging and every route registered.
func New(logger *log.Logger, api API) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			j := log.JSON{
				"event":      "http.request",
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				j["error"] = v.Error.Error()
				logger.Warnj(j)
				return nil
			}
			logger.Infoj(j)
			return nil
		},
	}))
	RegisterRoutes(e)
	RegisterAPI(e, api)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// API is everything the /v1 routes need.
type API struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // optional; nil disables rate limiting

	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Partners *handler.PartnerHandler
	Admin    *handler.AdminHandler

	PartnerGate middleware.PartnerLoader
}

// RegisterAPI mounts the authenticated /v1 API. Every route runs JWTAuth
// first, then the rate limiter keyed on the authenticated caller.
func RegisterAPI(e *echo.Echo, api API) {
	v1 := e.Group("/v1", middleware.JWTAuth(api.JWTSecret))
	if api.RateLimit != nil {
		v1.Use(api.RateLimit)
	}
	registerBookings(v1, api)
	registerPayments(v1, api)
	registerPartners(v1, api)
	registerAdmin(v1, api)
}
