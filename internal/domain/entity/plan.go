package entity

import "github.com/shopspring/decimal"

// Plan is a normalized purchasable product. Price is in minor units as
// reported by the provider; DisplayPrice converts it for presentation.
type Plan struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           int64           `json:"price"`
	Currency        string          `json:"currency"`
	BillingInterval string          `json:"billing_interval,omitempty"`
	IntervalCount   int             `json:"interval_count,omitempty"`
	Recurring       bool            `json:"recurring"`
	TaxInclusive    bool            `json:"tax_inclusive"`
	DisplayPrice    decimal.Decimal `json:"display_price"`
}

// FindPlan returns the plan with the given id, or nil.
func FindPlan(plans []Plan, id string) *Plan {
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i]
		}
	}
	return nil
}

// MinorToMajor converts an amount in minor units (cents) into a decimal.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
