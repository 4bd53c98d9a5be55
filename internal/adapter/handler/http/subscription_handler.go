package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

type SubscriptionManager interface {
	GetBillingStatus(ctx context.Context, userID uuid.UUID) entity.BillingStatus
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.AuditEvent, error)
	Cancel(ctx context.Context, userID uuid.UUID, subscriptionID string) usecase.MutationResult
	ChangePlan(ctx context.Context, userID uuid.UUID, subscriptionID, planID string) usecase.MutationResult
}

type SubscriptionHandler struct {
	logger        *zap.Logger
	subscriptions SubscriptionManager
}

func NewSubscriptionHandler(logger *zap.Logger, subscriptions SubscriptionManager) *SubscriptionHandler {
	return &SubscriptionHandler{logger: logger, subscriptions: subscriptions}
}

type SubscriptionResponse struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	ProviderStatus    string          `json:"provider_status,omitempty"`
	PlanID            string          `json:"plan_id"`
	PlanName          string          `json:"plan_name,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty"`
	CurrentPeriodEnd  *time.Time      `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool            `json:"cancel_at_period_end"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type HistoryEntry struct {
	SubscriptionID string    `json:"subscription_id"`
	EventType      string    `json:"event_type"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChangePlanRequest struct {
	PlanID string `json:"plan_id" validate:"required,max=100"`
}

// GetBillingStatus always answers 200; store trouble resolves to inactive.
func (h *SubscriptionHandler) GetBillingStatus(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.subscriptions.GetBillingStatus(c.Request().Context(), user.UserID))
}

func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	subs, err := h.subscriptions.ListForUser(c.Request().Context(), user.UserID)
	if err != nil {
		return errors.ToHTTPError(err)
	}

	out := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriptionResponse{
			ID:                s.ExternalID,
			Status:            string(s.Status),
			ProviderStatus:    s.ProviderStatus,
			PlanID:            s.PlanID,
			PlanName:          s.PlanName,
			Amount:            s.Amount,
			Currency:          s.Currency,
			CurrentPeriodEnd:  s.CurrentPeriodEnd,
			CancelAtPeriodEnd: s.CancelAtPeriodEnd,
			CancelledAt:       s.CancelledAt,
			UpdatedAt:         s.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"subscriptions": out})
}

// GetBillingHistory lists the caller's status transitions. ?limit= pages it.
func (h *SubscriptionHandler) GetBillingHistory(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return errors.ToHTTPError(errors.NewAppError(errors.ErrInvalidArgument, "limit must be an integer", err).
			WithUserMessage("limit must be an integer"))
	}

	events, err := h.subscriptions.History(c.Request().Context(), user.UserID, limit)
	if err != nil {
		errors.LogError(h.logger, err, "Failed to load billing history", zap.String("user_id", user.UserID.String()))
		return errors.ToHTTPError(err)
	}

	out := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		out = append(out, HistoryEntry{
			SubscriptionID: e.SubscriptionID,
			EventType:      e.EventType,
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			CreatedAt:      e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}

func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	result := h.subscriptions.Cancel(c.Request().Context(), user.UserID, c.Param("id"))
	return mutationResponse(c, result)
}

func (h *SubscriptionHandler) ChangePlan(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req ChangePlanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errors.ToHTTPError(err)
	}

	result := h.subscriptions.ChangePlan(c.Request().Context(), user.UserID, c.Param("id"), req.PlanID)
	return mutationResponse(c, result)
}

func mutationResponse(c echo.Context, result usecase.MutationResult) error {
	if result.Success {
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(errors.ToHTTPStatus(result.Code), result)
}
