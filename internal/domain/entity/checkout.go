package entity

import "time"

// CheckoutSession is the ephemeral hosted-checkout handle returned to the client.
type CheckoutSession struct {
	SessionID string            `json:"session_id"`
	URL       string            `json:"checkout_url"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Correlation metadata keys attached to checkouts and echoed back in events.
const (
	MetadataUserID  = "user_id"
	MetadataGuestID = "guest_id"
	MetadataPlanID  = "plan_id"
)
