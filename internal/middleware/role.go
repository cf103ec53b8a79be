package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

// CtxPartner is the context key holding the *model.Partner loaded by
// RequireApprovedPartner.
const CtxPartner = "partner"

// RequireRole enforces that the authenticated user has one of roles. It
// assumes JWTAuth already stored the role claim under CtxRole.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "role not allowed"})
			}
			return next(c)
		}
	}
}

// PartnerLoader fetches a partner by id; *service.PartnerService satisfies it.
type PartnerLoader interface {
	Get(ctx context.Context, id string) (*model.Partner, error)
}

// RequireApprovedPartner loads the calling partner and rejects anyone not
// yet approved. Run it after JWTAuth and RequireRole(service.RolePartner).
func RequireApprovedPartner(partners PartnerLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing principal"})
			}
			partner, err := partners.Get(c.Request().Context(), p.ID)
			if err != nil {
				if service.IsKind(err, service.KindNotFound) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "partner profile not registered"})
				}
				var se *service.Error
				if errors.As(err, &se) && se.Err != nil {
					c.Logger().Errorf("partner gate: %v", se.Err)
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
			}
			if partner.Approval != model.ApprovalApproved {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "partner is " + string(partner.Approval)})
			}
			c.Set(CtxPartner, partner)
			return next(c)
		}
	}
}
