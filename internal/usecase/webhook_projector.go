package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/billing-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"github.com/wekeepgrowing/billing-gateway/pkg/messaging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Outcome describes what the projector did with an event.
type Outcome string

const (
	// OutcomeApplied means the subscription row was written.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the event needs no state change.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDropped means the event could not be applied and was discarded.
	OutcomeDropped Outcome = "dropped"
)

// ErrStaleEvent is the drop reason when stale-event rejection is enabled and
// an event predates the last one applied.
var ErrStaleEvent = errors.New("event is older than the last applied event")

// ProjectionResult reports the outcome of one event. Reason explains ignored
// and dropped events. Warnings collects failed secondary writes, which never
// fail the projection.
type ProjectionResult struct {
	Outcome        Outcome
	EventType      string
	SubscriptionID string
	UserID         string
	PreviousStatus entity.SubscriptionStatus
	Status         entity.SubscriptionStatus
	Reason         error
	Warnings       error
}

type transition struct {
	to entity.SubscriptionStatus
	// upsert creates the row when absent; otherwise unknown ids are dropped.
	upsert bool
	// payment events carry a payment object, so only the status moves.
	payment bool
	// from restricts the transition to these current statuses when set.
	from []entity.SubscriptionStatus
}

var transitions = map[string]transition{
	entity.EventSubscriptionCreated:     {to: entity.SubscriptionStatusActive, upsert: true},
	entity.EventSubscriptionActive:      {to: entity.SubscriptionStatusActive, upsert: true},
	entity.EventSubscriptionRenewed:     {to: entity.SubscriptionStatusActive},
	entity.EventSubscriptionPlanChanged: {to: entity.SubscriptionStatusActive},
	entity.EventSubscriptionOnHold:      {to: entity.SubscriptionStatusOnHold},
	entity.EventSubscriptionCancelled:   {to: entity.SubscriptionStatusCancelled},
	entity.EventSubscriptionFailed:      {to: entity.SubscriptionStatusFailed},
	entity.EventSubscriptionExpired:     {to: entity.SubscriptionStatusExpired},
	entity.EventPaymentSucceeded: {
		to:      entity.SubscriptionStatusActive,
		payment: true,
		from:    []entity.SubscriptionStatus{entity.SubscriptionStatusPastDue},
	},
	entity.EventPaymentFailed: {to: entity.SubscriptionStatusPastDue, payment: true},
}

type ProjectorOptions struct {
	EntitlementsChannel string
	RejectStaleEvents   bool
}

// WebhookProjector applies verified provider events to the local subscription
// store. Writes are keyed by the external subscription id and overwrite the
// row, so replaying an event converges on the same state.
type WebhookProjector struct {
	subscriptions repository.SubscriptionRepository
	customers     repository.CustomerRepository
	users         repository.UserRepository
	audit         repository.AuditRepository
	publisher     messaging.Publisher
	opts          ProjectorOptions
	now           func() time.Time
	logger        *zap.Logger
}

func NewWebhookProjector(
	subscriptions repository.SubscriptionRepository,
	customers repository.CustomerRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	publisher messaging.Publisher,
	opts ProjectorOptions,
	logger *zap.Logger,
) *WebhookProjector {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &WebhookProjector{
		subscriptions: subscriptions,
		customers:     customers,
		users:         users,
		audit:         audit,
		publisher:     publisher,
		opts:          opts,
		now:           time.Now,
		logger:        logger.Named("projector"),
	}
}

// Project routes one event. It returns an error only when the primary
// subscription write (or the read before it) fails, or when the event data
// is not decodable; business misses come back as ignored or dropped results.
func (p *WebhookProjector) Project(ctx context.Context, event *entity.WebhookEvent) (*ProjectionResult, error) {
	result := &ProjectionResult{EventType: event.Type}

	t, ok := transitions[event.Type]
	if !ok {
		result.Outcome = OutcomeIgnored
		result.Reason = errors.NewAppError(errors.ErrUnknownEventType,
			fmt.Sprintf("unhandled event type %q", event.Type), nil)
		return result, nil
	}

	payload, err := mapper.Decode(event.Data)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidArgument, "event data is not a JSON object", err)
	}

	occurredAt := p.now().UTC()
	if event.Timestamp != nil {
		occurredAt = event.Timestamp.UTC()
	}

	if t.payment {
		return p.projectPayment(ctx, event, t, payload, occurredAt, result)
	}
	return p.projectSubscription(ctx, event, t, payload, occurredAt, result)
}

func (p *WebhookProjector) projectSubscription(
	ctx context.Context,
	event *entity.WebhookEvent,
	t transition,
	payload mapper.Payload,
	occurredAt time.Time,
	result *ProjectionResult,
) (*ProjectionResult, error) {
	incoming, err := mapper.SubscriptionFromPayload(payload)
	if err != nil {
		return p.drop(result, domainErrors.ErrMissingSubscriptionID), nil
	}
	result.SubscriptionID = incoming.ExternalID

	existing, err := p.load(ctx, incoming.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing == nil && !t.upsert {
		return p.drop(result, domainErrors.ErrSubscriptionNotFound), nil
	}
	if p.isStale(existing, occurredAt) {
		return p.drop(result, ErrStaleEvent), nil
	}

	var next *entity.Subscription
	if t.upsert {
		owner, err := p.resolveOwner(ctx, incoming, existing)
		if err != nil {
			if errors.Is(err, domainErrors.ErrOwnerUnresolved) {
				return p.drop(result, err), nil
			}
			return nil, err
		}
		next = incoming
		next.UserID = owner
		next.CreatedAt = occurredAt
		if existing != nil {
			next.ID = existing.ID
			next.CreatedAt = existing.CreatedAt
		}
	} else {
		next = mergeSubscription(existing, incoming)
	}

	next.Status = t.to
	if t.to == entity.SubscriptionStatusCancelled && next.CancelledAt == nil {
		next.CancelledAt = &occurredAt
	}
	next.UpdatedAt = occurredAt
	next.LastEventAt = &occurredAt

	if t.upsert {
		err = p.subscriptions.Upsert(ctx, next)
	} else {
		err = p.subscriptions.Update(ctx, next)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist subscription")
	}

	return p.applied(ctx, event, next, previousStatus(existing), occurredAt, result), nil
}

func (p *WebhookProjector) projectPayment(
	ctx context.Context,
	event *entity.WebhookEvent,
	t transition,
	payload mapper.Payload,
	occurredAt time.Time,
	result *ProjectionResult,
) (*ProjectionResult, error) {
	subscriptionID := mapper.FirstString(payload, "subscription_id")
	if subscriptionID == "" {
		// One-off payments have no subscription to move.
		result.Outcome = OutcomeIgnored
		result.Reason = domainErrors.ErrMissingSubscriptionID
		return result, nil
	}
	result.SubscriptionID = subscriptionID

	existing, err := p.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return p.drop(result, domainErrors.ErrSubscriptionNotFound), nil
	}
	result.UserID = existing.UserID.String()
	if p.isStale(existing, occurredAt) {
		return p.drop(result, ErrStaleEvent), nil
	}
	if len(t.from) > 0 && !containsStatus(t.from, existing.Status) {
		result.Outcome = OutcomeIgnored
		result.Status = existing.Status
		return result, nil
	}

	next := *existing
	next.Status = t.to
	next.UpdatedAt = occurredAt
	next.LastEventAt = &occurredAt
	if err := p.subscriptions.Update(ctx, &next); err != nil {
		return nil, errors.Wrap(err, "failed to persist subscription")
	}

	return p.applied(ctx, event, &next, existing.Status, occurredAt, result), nil
}

func (p *WebhookProjector) load(ctx context.Context, externalID string) (*entity.Subscription, error) {
	sub, err := p.subscriptions.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load subscription")
	}
	return sub, nil
}

func (p *WebhookProjector) isStale(existing *entity.Subscription, occurredAt time.Time) bool {
	if !p.opts.RejectStaleEvents || existing == nil || existing.LastEventAt == nil {
		return false
	}
	return occurredAt.Before(*existing.LastEventAt)
}

// resolveOwner takes the user from checkout metadata first, then from the
// stored customer link, then from the row being overwritten.
func (p *WebhookProjector) resolveOwner(ctx context.Context, incoming, existing *entity.Subscription) (uuid.UUID, error) {
	if raw, ok := incoming.Metadata[entity.MetadataUserID].(string); ok && raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
		p.logger.Warn("Ignoring malformed user_id in subscription metadata",
			zap.String("subscription_id", incoming.ExternalID),
			zap.String("user_id", raw))
	}

	if incoming.CustomerID != "" {
		customer, err := p.customers.GetByExternalID(ctx, incoming.CustomerID)
		switch {
		case err == nil && customer.UserID != nil:
			return *customer.UserID, nil
		case err != nil && !errors.Is(err, domainErrors.ErrCustomerNotFound):
			return uuid.Nil, errors.Wrap(err, "failed to load customer")
		}
	}

	if existing != nil && existing.UserID != uuid.Nil {
		return existing.UserID, nil
	}
	return uuid.Nil, domainErrors.ErrOwnerUnresolved
}

// applied runs the secondary writes. Each is best-effort and its failure is
// collected into result.Warnings.
func (p *WebhookProjector) applied(
	ctx context.Context,
	event *entity.WebhookEvent,
	sub *entity.Subscription,
	previous entity.SubscriptionStatus,
	occurredAt time.Time,
	result *ProjectionResult,
) *ProjectionResult {
	result.Outcome = OutcomeApplied
	result.UserID = sub.UserID.String()
	result.PreviousStatus = previous
	result.Status = sub.Status

	var warnings error

	mirror := p.resolvedStatus(ctx, sub)
	if err := p.users.UpdateSubscriptionStatus(ctx, sub.UserID, mirror); err != nil {
		warnings = multierr.Append(warnings, fmt.Errorf("status mirror: %w", err))
	}

	auditEvent := &entity.AuditEvent{
		UserID:         sub.UserID,
		SubscriptionID: sub.ExternalID,
		EventType:      event.Type,
		PreviousStatus: previous,
		NewStatus:      sub.Status,
		Metadata: map[string]interface{}{
			"webhook_id":      event.ID,
			"provider_status": sub.ProviderStatus,
			"plan_id":         sub.PlanID,
		},
		CreatedAt: occurredAt,
	}
	if err := p.audit.Append(ctx, auditEvent); err != nil {
		warnings = multierr.Append(warnings, fmt.Errorf("audit append: %w", err))
	}

	if p.opts.EntitlementsChannel != "" {
		change := messaging.Envelope{
			Type: "entitlement.changed",
			Data: entity.EntitlementChange{
				UserID:         sub.UserID.String(),
				SubscriptionID: sub.ExternalID,
				EventType:      event.Type,
				PreviousStatus: previous,
				Status:         sub.Status,
				OccurredAt:     occurredAt,
			},
			PublishedAt: p.now().UTC(),
		}
		if err := p.publisher.Publish(ctx, p.opts.EntitlementsChannel, change); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("publish entitlement change: %w", err))
		}
	}

	result.Warnings = warnings
	return result
}

// resolvedStatus computes the user's current status across all of their
// subscriptions, falling back to the row just written.
func (p *WebhookProjector) resolvedStatus(ctx context.Context, sub *entity.Subscription) entity.SubscriptionStatus {
	subs, err := p.subscriptions.ListByUser(ctx, sub.UserID)
	if err != nil || len(subs) == 0 {
		return sub.Status
	}
	view := ResolveAccess(subs, nil, p.now())
	if view.SubscriptionID == "" {
		return sub.Status
	}
	return view.Status
}

func (p *WebhookProjector) drop(result *ProjectionResult, reason error) *ProjectionResult {
	result.Outcome = OutcomeDropped
	result.Reason = reason
	p.logger.Warn("Dropping webhook event",
		zap.String("event_type", result.EventType),
		zap.String("subscription_id", result.SubscriptionID),
		zap.Error(reason))
	return result
}

// mergeSubscription overlays the fields an event carries onto the stored row.
func mergeSubscription(existing, incoming *entity.Subscription) *entity.Subscription {
	next := *existing
	if incoming.CustomerID != "" {
		next.CustomerID = incoming.CustomerID
	}
	if incoming.ProviderStatus != "" {
		next.ProviderStatus = incoming.ProviderStatus
	}
	if incoming.PlanID != "" {
		next.PlanID = incoming.PlanID
	}
	if incoming.PlanName != "" {
		next.PlanName = incoming.PlanName
	}
	if !incoming.Amount.IsZero() {
		next.Amount = incoming.Amount
	}
	if incoming.Currency != "" {
		next.Currency = incoming.Currency
	}
	if incoming.CurrentPeriodStart != nil {
		next.CurrentPeriodStart = incoming.CurrentPeriodStart
	}
	if incoming.CurrentPeriodEnd != nil {
		next.CurrentPeriodEnd = incoming.CurrentPeriodEnd
	}
	if incoming.CancelledAt != nil {
		next.CancelledAt = incoming.CancelledAt
	}
	if incoming.Metadata != nil {
		next.Metadata = incoming.Metadata
	}
	next.CancelAtPeriodEnd = incoming.CancelAtPeriodEnd
	return &next
}

func previousStatus(existing *entity.Subscription) entity.SubscriptionStatus {
	if existing == nil {
		return ""
	}
	return existing.Status
}

func containsStatus(list []entity.SubscriptionStatus, s entity.SubscriptionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
