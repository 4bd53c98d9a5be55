package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/billing-gateway/internal/adapter/handler/http"
	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/billing-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/logger"
	"github.com/wekeepgrowing/billing-gateway/pkg/messaging"
	"go.uber.org/zap"
)

// Dependencies are the use cases the HTTP surface is built on.
type Dependencies struct {
	Gateway       *usecase.GatewayService
	Checkout      *usecase.CheckoutService
	Subscriptions *usecase.SubscriptionService
	Projector     *usecase.WebhookProjector
	Publisher     messaging.Publisher
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	deps   Dependencies
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	logger.WithEchoLogger(e, log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	if cfg.Service.ClientURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{cfg.Service.ClientURL},
			AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
		}))
	}

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "healthy",
			"service":  s.config.Service.Name,
			"provider": s.config.Provider.Type,
		})
	})

	// Initialize handlers
	plansHandler := handlers.NewPlansHandler(s.logger, s.deps.Gateway)
	checkoutHandler := handlers.NewCheckoutHandler(s.logger, s.deps.Checkout)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.logger, s.deps.Subscriptions)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.deps.Projector,
		crypto.NewStandardVerifier(), s.config.Provider.WebhookSecret)
	voiceHandler := handlers.NewVoiceWebhookHandler(s.logger,
		crypto.NewTimestampedVerifier(s.config.Voice.SignatureTolerance),
		s.config.Voice.WebhookSecret, s.deps.Publisher, s.config.Redis.VoiceEventsChannel)

	// Webhook routes (outside API versioning)
	webhooks := s.echo.Group("/webhooks")
	if s.config.Provider.Type == config.ProviderStripe {
		webhooks.POST("/billing", webhookHandler.HandleStripeWebhook)
	} else {
		webhooks.POST("/billing", webhookHandler.HandleWebhook)
	}
	webhooks.POST("/voice", voiceHandler.HandleWebhook)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes
	v1.GET("/plans", plansHandler.GetPlans)
	v1.POST("/checkout/guest", checkoutHandler.CreateGuestCheckout)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}))

	protected.POST("/checkout", checkoutHandler.CreateCheckout)
	protected.GET("/billing/status", subscriptionHandler.GetBillingStatus)
	protected.GET("/billing/history", subscriptionHandler.GetBillingHistory)

	subscriptions := protected.Group("/subscriptions")
	subscriptions.GET("", subscriptionHandler.ListSubscriptions)
	subscriptions.POST("/:id/cancel", subscriptionHandler.CancelSubscription)
	subscriptions.POST("/:id/change-plan", subscriptionHandler.ChangePlan)
}
