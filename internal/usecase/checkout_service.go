package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

// CheckoutInput starts a hosted checkout. Exactly one of UserID and GuestID
// identifies the buyer.
type CheckoutInput struct {
	UserID    *uuid.UUID
	GuestID   string
	Email     string
	Name      string
	PlanID    string
	ReturnURL string
}

type CheckoutService struct {
	gateway          *GatewayService
	customers        repository.CustomerRepository
	defaultReturnURL string
	logger           *zap.Logger
}

func NewCheckoutService(gateway *GatewayService, customers repository.CustomerRepository, defaultReturnURL string, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		gateway:          gateway,
		customers:        customers,
		defaultReturnURL: defaultReturnURL,
		logger:           logger.Named("checkout"),
	}
}

// StartCheckout ensures a provider customer exists and opens a checkout for
// the plan. The buyer reference is stamped into the session metadata so the
// resulting subscription events can be attributed.
func (s *CheckoutService) StartCheckout(ctx context.Context, in CheckoutInput) (*entity.CheckoutSession, error) {
	if in.UserID == nil && in.GuestID == "" {
		return nil, errors.NewAppError(errors.ErrInvalidArgument, "checkout requires a user or guest id", nil)
	}
	if in.PlanID == "" {
		return nil, errors.NewAppError(errors.ErrInvalidArgument, "plan id is required", nil)
	}

	// An empty catalogue means the provider is unreachable; let the
	// checkout call itself decide.
	if plans := s.gateway.ListProductsForCheckout(ctx); len(plans) > 0 && entity.FindPlan(plans, in.PlanID) == nil {
		return nil, errors.NewAppError(errors.ErrInvalidArgument,
			fmt.Sprintf("unknown plan %q", in.PlanID), nil).WithUserMessage("The selected plan is not available.")
	}

	metadata := map[string]string{entity.MetadataPlanID: in.PlanID}
	ref := in.GuestID
	if in.UserID != nil {
		ref = in.UserID.String()
		metadata[entity.MetadataUserID] = ref
	} else {
		metadata[entity.MetadataGuestID] = in.GuestID
	}

	customer, err := s.gateway.EnsureCustomer(ctx, ref, in.Email, in.Name)
	if err != nil {
		return nil, err
	}

	if in.UserID != nil {
		customer.UserID = in.UserID
		if err := s.customers.Upsert(ctx, customer); err != nil {
			// Metadata still carries the user id, so attribution survives.
			errors.LogWarnings(s.logger, err, "Failed to store customer link",
				zap.String("customer_id", customer.ExternalID))
		}
	}

	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = s.defaultReturnURL
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, customer.ExternalID, in.PlanID, returnURL, metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checkout session created",
		zap.String("session_id", session.SessionID),
		zap.String("customer_id", customer.ExternalID),
		zap.String("plan_id", in.PlanID),
		zap.Bool("guest", in.UserID == nil))
	return session, nil
}
