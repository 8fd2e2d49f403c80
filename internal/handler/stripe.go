package handler

import (
	"fmt"
	"io"
	"net/http"

	"apparel-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

// maxWebhookBody caps provider webhook payloads.
const maxWebhookBody = 65536

type StripeHandler struct {
	stripeService service.StripeService
}

func NewStripeHandler(stripeService service.StripeService) *StripeHandler {
	return &StripeHandler{
		stripeService: stripeService,
	}
}

func (h *StripeHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.stripeService.HandleWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return fmt.Errorf("handle stripe webhook: %w", err)
	}

	return c.NoContent(http.StatusOK)
}
