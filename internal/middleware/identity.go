package middleware

// identity.go turns the values JWTAuth stored in the Echo context into a
// service.Principal for handlers and the rate limiter.

import (
	"github.com/labstack/echo/v4"

	"github.com/tintd/salon-dispatch/internal/service"
)

// Principal returns the authenticated caller. ok is false when JWTAuth did
// not run or the token carried no subject.
func Principal(c echo.Context) (service.Principal, bool) {
	id, _ := c.Get(CtxUserID).(string)
	if id == "" {
		return service.Principal{}, false
	}
	role, _ := c.Get(CtxRole).(string)
	email, _ := c.Get(CtxEmail).(string)
	return service.Principal{ID: id, Role: role, Email: email}, true
}

// userID is the rate limit identity; "anon" when unauthenticated.
func userID(c echo.Context) string {
	if p, ok := Principal(c); ok {
		return p.ID
	}
	return "anon"
}
