package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/billing-gateway/pkg/messaging"
	"go.uber.org/zap"
)

// VoiceWebhookHandler verifies audio provider callbacks and forwards them to
// the voice events channel for downstream consumers.
type VoiceWebhookHandler struct {
	logger    *zap.Logger
	verifier  crypto.Verifier
	secret    string
	publisher messaging.Publisher
	channel   string
}

func NewVoiceWebhookHandler(logger *zap.Logger, verifier crypto.Verifier, secret string, publisher messaging.Publisher, channel string) *VoiceWebhookHandler {
	return &VoiceWebhookHandler{
		logger:    logger,
		verifier:  verifier,
		secret:    secret,
		publisher: publisher,
		channel:   channel,
	}
}

func (h *VoiceWebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		h.logger.Warn("Error reading voice webhook body", zap.Error(err))
		return badBody(c, err)
	}

	if err := h.verifier.Check(body, c.Request().Header, h.secret); err != nil {
		h.logger.Warn("Voice webhook signature verification failed", zap.Error(err))
		if crypto.IsMissingHeaders(err) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing or malformed signature header"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	var event entity.VoiceEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed webhook payload"})
	}
	event.ReceivedAt = time.Now().UTC()

	envelope := messaging.Envelope{Type: event.Type, Data: event, PublishedAt: event.ReceivedAt}
	if err := h.publisher.Publish(c.Request().Context(), h.channel, envelope); err != nil {
		// 500 makes the provider redeliver; nothing else records the event.
		h.logger.Error("Failed to forward voice event",
			zap.String("event_type", event.Type),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Webhook processing failed"})
	}

	h.logger.Info("Voice event forwarded",
		zap.String("event_type", event.Type),
		zap.String("channel", h.channel))
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
