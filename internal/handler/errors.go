package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/service"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:         http.StatusBadRequest,
	service.KindNotFound:           http.StatusNotFound,
	service.KindUnauthorized:       http.StatusUnauthorized,
	service.KindForbidden:          http.StatusForbidden,
	service.KindConflict:           http.StatusConflict,
	service.KindSignatureInvalid:   http.StatusBadRequest,
	service.KindGatewayUnavailable: http.StatusBadGateway,
	service.KindInvalidTransition:  http.StatusBadRequest,
	service.KindPaymentNotComplete: http.StatusBadRequest,
	service.KindInternal:           http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k service.Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": text}. Internal
// causes are logged and never sent to the client.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Message: "internal error", Err: err}
	}
	msg := se.Message
	if se.Kind == service.KindInternal {
		c.Logger().Errorj(log.JSON{
			"event":  "request.failed",
			"method": c.Request().Method,
			"path":   c.Path(),
			"error":  se.Error(),
		})
		msg = "internal error"
	}
	return c.JSON(StatusFor(se.Kind), echo.Map{"error": se.Kind, "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": service.KindValidation, "message": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.KindUnauthorized, "message": "unauthorized"})
}
