package handler

import (
	"fmt"
	"io"
	"net/http"

	"apparel-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type PaypalHandler struct {
	paypalService service.PaypalService
}

func NewPaypalHandler(paypalService service.PaypalService) *PaypalHandler {
	return &PaypalHandler{
		paypalService: paypalService,
	}
}

// HandleReturn is PayPal's return_url. PayPal appends the approved order id as token.
func (h *PaypalHandler) HandleReturn(c echo.Context) error {
	ctx := c.Request().Context()

	orderNumber := c.QueryParam("order")
	if orderNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order")
	}

	redirectURL, err := h.paypalService.CaptureReturn(ctx, orderNumber, c.QueryParam("token"))
	if err != nil {
		return err
	}

	return c.Redirect(http.StatusFound, redirectURL)
}

func (h *PaypalHandler) PayPalWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.paypalService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		return fmt.Errorf("handle paypal webhook: %w", err)
	}

	return c.NoContent(http.StatusOK)
}
