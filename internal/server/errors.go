package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"apparel-checkout/internal/dto"
	"apparel-checkout/internal/idempotency"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

// errorHandler renders every failure as {"error": msg}. Internal details never reach the client.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, dto.ErrorResponse{Error: msg})
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "write error response", "error", err)
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	switch {
	case service.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidWebhook):
		return http.StatusBadRequest, "invalid webhook"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, idempotency.ErrInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orderstatus.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orderstatus.ErrConcurrentUpdate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrPaymentProvider):
		return http.StatusInternalServerError, "payment provider unavailable, please try again"
	}

	return http.StatusInternalServerError, "internal server error"
}
