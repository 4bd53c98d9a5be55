package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/crypto"
	stripeprovider "github.com/wekeepgrowing/billing-gateway/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

// maxWebhookBody bounds how much of a delivery is read before verification.
const maxWebhookBody = 1 << 20

var errBodyTooLarge = errors.NewAppError(errors.ErrInvalidArgument, "webhook body exceeds 1 MiB", nil)

// EventProjector applies a verified event.
type EventProjector interface {
	Project(ctx context.Context, event *entity.WebhookEvent) (*usecase.ProjectionResult, error)
}

// WebhookHandler receives subscription provider notifications. Only
// unexpected internal faults answer 500; everything the projector decided to
// skip is acknowledged with 200 so the provider stops redelivering.
type WebhookHandler struct {
	logger    *zap.Logger
	projector EventProjector
	verifier  crypto.Verifier
	secret    string
}

func NewWebhookHandler(logger *zap.Logger, projector EventProjector, verifier crypto.Verifier, secret string) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		projector: projector,
		verifier:  verifier,
		secret:    secret,
	}
}

// HandleWebhook serves the id/timestamp/signature scheme.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		h.logger.Warn("Error reading webhook body", zap.Error(err))
		return badBody(c, err)
	}

	if err := h.verifier.Check(body, c.Request().Header, h.secret); err != nil {
		return h.rejectSignature(c, err)
	}

	var event entity.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		h.logger.Warn("Malformed webhook payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed webhook payload"})
	}
	event.ID = c.Request().Header.Get(crypto.HeaderWebhookID)
	if event.Timestamp == nil {
		// the signed header time keeps redeliveries of the same payload identical
		if at, ok := crypto.DeliveryTime(c.Request().Header); ok {
			event.Timestamp = &at
		}
	}

	return h.project(c, &event)
}

// HandleStripeWebhook serves Stripe's signed event format.
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		h.logger.Warn("Error reading webhook body", zap.Error(err))
		return badBody(c, err)
	}

	sig := c.Request().Header.Get(stripeprovider.SignatureHeader)
	if sig == "" {
		return h.rejectSignature(c, crypto.ErrMissingHeaders)
	}
	evt, err := stripeprovider.ConstructEvent(body, sig, h.secret)
	if err != nil {
		return h.rejectSignature(c, err)
	}

	event, ok, err := stripeprovider.TranslateEvent(evt)
	if err != nil {
		h.logger.Warn("Malformed Stripe event", zap.String("event_id", evt.ID), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed webhook payload"})
	}
	if !ok {
		h.logger.Debug("Ignoring Stripe event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)))
		return c.JSON(http.StatusOK, echo.Map{"received": true, "outcome": usecase.OutcomeIgnored})
	}

	return h.project(c, event)
}

func (h *WebhookHandler) project(c echo.Context, event *entity.WebhookEvent) error {
	result, err := h.projector.Project(c.Request().Context(), event)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrInvalidArgument {
			h.logger.Warn("Rejecting undecodable webhook event",
				zap.String("event_type", event.Type),
				zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed webhook payload"})
		}
		errors.LogError(h.logger, err, "Webhook projection failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Webhook processing failed"})
	}

	errors.LogWarnings(h.logger, result.Warnings, "Webhook secondary write failed",
		zap.String("event_id", event.ID),
		zap.String("subscription_id", result.SubscriptionID))

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("outcome", string(result.Outcome)),
		zap.String("subscription_id", result.SubscriptionID),
	}
	if result.Outcome == usecase.OutcomeApplied {
		fields = append(fields,
			zap.String("previous_status", string(result.PreviousStatus)),
			zap.String("status", string(result.Status)))
	}
	if result.Reason != nil {
		fields = append(fields, zap.NamedError("reason", result.Reason))
	}
	h.logger.Info("Webhook processed", fields...)

	return c.JSON(http.StatusOK, echo.Map{"received": true, "outcome": result.Outcome})
}

func (h *WebhookHandler) rejectSignature(c echo.Context, err error) error {
	h.logger.Warn("Webhook signature verification failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	if crypto.IsMissingHeaders(err) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing or malformed signature headers"})
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
}

// readBody reads at most maxWebhookBody bytes. A longer body is an error
// rather than a silent truncation that would fail verification.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxWebhookBody {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func badBody(c echo.Context, err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Request body too large"})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
}
