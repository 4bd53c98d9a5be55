package usecase

import (
	"sort"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// statusRank orders access-granting statuses; lower wins.
var statusRank = map[entity.SubscriptionStatus]int{
	entity.SubscriptionStatusActive:  0,
	entity.SubscriptionStatusPastDue: 1,
}

// ResolveAccess reduces a user's subscriptions to one AccessView.
//
// Active beats past_due, and within a status the latest period end wins.
// Access requires the period end to lie strictly after now, so an active row
// whose expiry event never arrived stops granting access on its own. When
// nothing qualifies, a pending subscription surfaces as Processing.
func ResolveAccess(subs []*entity.Subscription, plans []entity.Plan, now time.Time) entity.AccessView {
	candidates := make([]*entity.Subscription, 0, len(subs))
	var pending *entity.Subscription
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if sub.Status.GrantsAccess() {
			candidates = append(candidates, sub)
			continue
		}
		if sub.Status == entity.SubscriptionStatusPending && newerThan(sub, pending) {
			pending = sub
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if statusRank[a.Status] != statusRank[b.Status] {
				return statusRank[a.Status] < statusRank[b.Status]
			}
			return periodEndAfter(a.CurrentPeriodEnd, b.CurrentPeriodEnd)
		})
		head := candidates[0]
		view := viewOf(head, plans)
		view.HasAccess = head.CurrentPeriodEnd != nil && head.CurrentPeriodEnd.After(now)
		return view
	}

	if pending != nil {
		view := viewOf(pending, plans)
		view.Processing = true
		return view
	}

	return entity.InactiveView()
}

func viewOf(sub *entity.Subscription, plans []entity.Plan) entity.AccessView {
	view := entity.AccessView{
		Status:         sub.Status,
		SubscriptionID: sub.ExternalID,
		PlanID:         sub.PlanID,
		PlanName:       sub.PlanName,
		Currency:       sub.Currency,
		PeriodEnd:      sub.CurrentPeriodEnd,
		Cancelling:     sub.IsCancelling(),
		ProviderStatus: sub.ProviderStatus,
	}
	if !sub.Amount.IsZero() {
		amount := sub.Amount
		view.PlanPrice = &amount
	}

	// The catalogue wins over the snapshot stored with the subscription.
	if plan := entity.FindPlan(plans, sub.PlanID); plan != nil {
		if plan.Name != "" {
			view.PlanName = plan.Name
		}
		if plan.Currency != "" {
			view.Currency = plan.Currency
		}
		price := plan.DisplayPrice
		view.PlanPrice = &price
	}
	return view
}

// periodEndAfter sorts nil period ends last.
func periodEndAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func newerThan(a, b *entity.Subscription) bool {
	if b == nil {
		return true
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}
