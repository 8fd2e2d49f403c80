package server

import (
	"context"
	"log/slog"
	"net/http"

	"apparel-checkout/internal/handler"
	appmw "apparel-checkout/internal/middleware"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	jwtSecret       []byte
	checkoutHandler *handler.CheckoutHandler
	paypalHandler   *handler.PaypalHandler
	stripeHandler   *handler.StripeHandler
	orderHandler    *handler.OrderHandler
}

func NewServer(
	jwtSecret []byte,
	checkoutService service.CheckoutService,
	paypalService service.PaypalService,
	stripeService service.StripeService,
	orderService service.OrderService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.LogAttrs(c.Request().Context(), slog.LevelWarn, "request", slog.Group("http", attrs...), slog.String("error", v.Error.Error()))
				return nil
			}
			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		jwtSecret:       jwtSecret,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		paypalHandler:   handler.NewPaypalHandler(paypalService),
		stripeHandler:   handler.NewStripeHandler(stripeService),
		orderHandler:    handler.NewOrderHandler(orderService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := appmw.AuthMiddleware(s.jwtSecret)

	// -------- checkout --------
	checkout := api.Group("/checkout", auth)
	checkout.POST("/stripe", s.checkoutHandler.Checkout(payment.ProviderStripe))
	checkout.POST("/paypal", s.checkoutHandler.Checkout(payment.ProviderPaypal))

	// -------- provider callbacks / webhooks --------
	api.GET("/paypal/return", s.paypalHandler.HandleReturn)
	api.POST("/webhooks/paypal", s.paypalHandler.PayPalWebhook)
	api.POST("/webhooks/stripe", s.stripeHandler.StripeWebhook)

	// -------- orders --------
	api.GET("/orders/:number", s.orderHandler.GetMyOrder, auth)

	admin := api.Group("/admin", auth)
	admin.GET("/orders/:number", s.orderHandler.GetOrder, appmw.RequirePermission(appmw.PermissionOrdersRead))
	admin.POST("/orders/:number/status", s.orderHandler.ChangeStatus, appmw.RequirePermission(appmw.PermissionOrdersManage))
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
