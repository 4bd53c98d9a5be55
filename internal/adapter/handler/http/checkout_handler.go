package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/billing-gateway/internal/usecase"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

type CheckoutStarter interface {
	StartCheckout(ctx context.Context, in usecase.CheckoutInput) (*entity.CheckoutSession, error)
}

type CheckoutHandler struct {
	logger   *zap.Logger
	checkout CheckoutStarter
}

func NewCheckoutHandler(logger *zap.Logger, checkout CheckoutStarter) *CheckoutHandler {
	return &CheckoutHandler{logger: logger, checkout: checkout}
}

type CreateCheckoutRequest struct {
	PlanID    string `json:"plan_id" validate:"required,max=100"`
	Name      string `json:"name" validate:"omitempty,max=255"`
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

type GuestCheckoutRequest struct {
	PlanID    string `json:"plan_id" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"omitempty,max=255"`
	GuestID   string `json:"guest_id" validate:"omitempty,max=100"`
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

// CreateCheckout opens a hosted checkout for the signed-in user.
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errors.ToHTTPError(err)
	}
	if user.Email == "" {
		return errors.ToHTTPError(errors.NewAppError(errors.ErrInvalidArgument, "token has no email claim", nil).
			WithUserMessage("An email address is required to start a checkout"))
	}

	name := req.Name
	if name == "" {
		name = user.Name
	}

	session, err := h.checkout.StartCheckout(c.Request().Context(), usecase.CheckoutInput{
		UserID:    &user.UserID,
		Email:     user.Email,
		Name:      name,
		PlanID:    req.PlanID,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

// CreateGuestCheckout opens a checkout without an account. The guest id is
// echoed back so the client can correlate the purchase later.
func (h *CheckoutHandler) CreateGuestCheckout(c echo.Context) error {
	var req GuestCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return errors.ToHTTPError(err)
	}
	if req.GuestID == "" {
		req.GuestID = uuid.NewString()
	}

	session, err := h.checkout.StartCheckout(c.Request().Context(), usecase.CheckoutInput{
		GuestID:   req.GuestID,
		Email:     req.Email,
		Name:      req.Name,
		PlanID:    req.PlanID,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		return errors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"session_id":   session.SessionID,
		"checkout_url": session.URL,
		"expires_at":   session.ExpiresAt,
		"guest_id":     req.GuestID,
	})
}
