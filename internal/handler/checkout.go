package handler

import (
	"net/http"

	"apparel-checkout/internal/dto"
	"apparel-checkout/internal/middleware"
	"apparel-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Checkout serves one provider's checkout route. Both routes share the same flow.
func (h *CheckoutHandler) Checkout(provider string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		identity := middleware.CurrentIdentity(c)
		if identity == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		var req dto.CheckoutRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		key := c.Request().Header.Get(headerIdempotencyKey)
		if len(key) > maxIdempotencyKeyLen {
			return echo.NewHTTPError(http.StatusBadRequest, "Idempotency-Key is too long")
		}

		result, err := h.checkoutService.Checkout(ctx, service.CheckoutInput{
			CustomerID:     identity.UserID,
			Email:          identity.Email,
			Provider:       provider,
			IdempotencyKey: key,
			Request:        &req,
		})
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, result)
	}
}
