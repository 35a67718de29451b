package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/codeabuu/simplifydocs/internal/adapter/handler/http"
	"github.com/codeabuu/simplifydocs/internal/bootstrap"
	"github.com/codeabuu/simplifydocs/internal/config"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/metrics"
	"github.com/codeabuu/simplifydocs/internal/middleware/auth"
	"github.com/codeabuu/simplifydocs/pkg/logger"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	usecases *bootstrap.UseCases
}

func NewServer(cfg *config.Config, log *zap.Logger, usecases *bootstrap.UseCases) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(metrics.EchoMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.FrontendURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		usecases: usecases,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) setupRoutes() {
	uc := s.usecases

	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize handlers
	plansHandler := handlers.NewPlansHandler(s.logger, uc.Catalog)
	checkoutHandler := handlers.NewCheckoutHandler(s.logger, uc.Checkout, uc.Reconciliation, s.config.Service.FrontendURL)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.logger, uc.Ledger, uc.Reconciliation)
	webhookHandler := handlers.NewWebhookHandler(s.logger, uc.Reconciliation, s.config.Paystack.WebhookSecret)
	paymentHandler := handlers.NewPaymentHandler(uc.Payments, s.logger)
	profileHandler := handlers.NewProfileHandler(s.logger, uc.Ledger)
	documentHandler := handlers.NewDocumentHandler(s.logger, uc.Documents, s.config.Documents.MaxUploadBytes)
	adminHandler := handlers.NewAdminHandler(s.logger, uc.Catalog, uc.Provisioner, uc.Reconciliation)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes (no authentication required)
	v1.GET("/plans", plansHandler.GetPlans)
	v1.POST("/webhooks/paystack", webhookHandler.HandleWebhook)
	// The provider redirects the browser here without a bearer token.
	v1.GET("/checkout/finalize", checkoutHandler.FinalizeCheckout)

	// Protected routes (require JWT authentication)
	protected := v1.Group("",
		auth.JWTMiddleware(jwtConfig),
		auth.EnsureUser(uc.Repos.User, s.logger),
	)

	protected.POST("/checkout", checkoutHandler.CreateCheckout)
	protected.GET("/profile", profileHandler.GetProfile)

	subscriptions := protected.Group("/subscriptions")
	subscriptions.GET("/status", subscriptionHandler.GetStatus)
	subscriptions.GET("/current", subscriptionHandler.GetCurrentSubscription)
	subscriptions.POST("/refresh", subscriptionHandler.RefreshSubscription)
	subscriptions.POST("/cancel", subscriptionHandler.CancelSubscription)
	subscriptions.GET("/transactions", paymentHandler.GetTransactions)

	protected.GET("/payments", paymentHandler.GetUserPayments)

	documents := protected.Group("/documents")
	documents.POST("/summarize", documentHandler.Summarize)
	documents.POST("/ask", documentHandler.Ask)
	documents.POST("/spreadsheet/preview", documentHandler.PreviewSpreadsheet)
	documents.POST("/spreadsheet/analyze", documentHandler.SuggestChart)

	// Operator routes
	admin := protected.Group("/admin", auth.RequireAdmin(s.logger))
	admin.POST("/plans", adminHandler.CreatePlan)
	admin.POST("/plans/provision", adminHandler.ProvisionPending)
	admin.POST("/plans/:id/provision", adminHandler.ProvisionPlan)
	admin.POST("/subscriptions/refresh", adminHandler.RefreshSubscriptions)
	admin.POST("/subscriptions/clear-dangling", adminHandler.ClearDangling)
}
