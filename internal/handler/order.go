package handler

import (
	"net/http"

	"apparel-checkout/internal/dto"
	"apparel-checkout/internal/middleware"
	"apparel-checkout/internal/model"
	"apparel-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) GetMyOrder(c echo.Context) error {
	ctx := c.Request().Context()

	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.orderService.GetForCustomer(ctx, identity.UserID, c.Param("number"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.Get(ctx, c.Param("number"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()

	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req dto.StatusChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orderService.ChangeStatus(ctx, identity.UserID, c.Param("number"), model.OrderStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}
