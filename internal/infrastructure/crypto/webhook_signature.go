package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers used by the subscription provider (standard webhook layout).
const (
	HeaderWebhookID        = "webhook-id"
	HeaderWebhookTimestamp = "webhook-timestamp"
	HeaderWebhookSignature = "webhook-signature"
)

// HeaderVoiceSignature carries "t=<unix>,v0=<hex>" from the audio provider.
const HeaderVoiceSignature = "ElevenLabs-Signature"

// DefaultVoiceTolerance is how old a timestamped signature may be.
const DefaultVoiceTolerance = 30 * time.Minute

var (
	ErrMissingHeaders    = errors.New("webhook signature headers missing")
	ErrMalformedHeader   = errors.New("webhook signature header malformed")
	ErrStaleTimestamp    = errors.New("webhook timestamp outside tolerance")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)

// Verifier authenticates a raw webhook body.
//
// Check reports why a delivery was rejected so callers can log it and pick a
// status code. Verify is the boolean form.
type Verifier interface {
	Check(body []byte, headers http.Header, secret string) error
	Verify(body []byte, headers http.Header, secret string) bool
}

// StandardVerifier implements the id/timestamp/signature header scheme:
// HMAC-SHA256 over "{id}.{timestamp}.{body}", hex encoded. The signature
// header is either one bare hex token or a comma separated list of
// version=value pairs, of which v1 entries are checked.
type StandardVerifier struct{}

func NewStandardVerifier() *StandardVerifier {
	return &StandardVerifier{}
}

func (v *StandardVerifier) Check(body []byte, headers http.Header, secret string) error {
	id := headers.Get(HeaderWebhookID)
	ts := headers.Get(HeaderWebhookTimestamp)
	sig := headers.Get(HeaderWebhookSignature)
	if id == "" || ts == "" || sig == "" {
		return ErrMissingHeaders
	}
	if secret == "" {
		return ErrSignatureMismatch
	}

	candidates := v1Signatures(sig)
	if len(candidates) == 0 {
		return ErrMalformedHeader
	}

	expected := signHex(secret, id+"."+ts+".", body)
	for _, candidate := range candidates {
		if constantTimeEqual(candidate, expected) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// DeliveryTime reads the unix-seconds webhook-timestamp header. It is only
// meaningful after Check accepted the delivery, since the timestamp is part
// of the signed string.
func DeliveryTime(headers http.Header) (time.Time, bool) {
	sec, err := strconv.ParseInt(headers.Get(HeaderWebhookTimestamp), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}

func (v *StandardVerifier) Verify(body []byte, headers http.Header, secret string) bool {
	return v.Check(body, headers, secret) == nil
}

func v1Signatures(header string) []string {
	header = strings.TrimSpace(header)
	if !strings.Contains(header, "=") {
		if header == "" {
			return nil
		}
		return []string{header}
	}

	var out []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.TrimSpace(key) == "v1" && value != "" {
			out = append(out, strings.TrimSpace(value))
		}
	}
	return out
}

// TimestampedVerifier implements the "t=<unix>,v0=<hex>" scheme: HMAC-SHA256
// over "{t}.{body}", rejected once the timestamp is older than Tolerance.
type TimestampedVerifier struct {
	Header    string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewTimestampedVerifier(tolerance time.Duration) *TimestampedVerifier {
	if tolerance <= 0 {
		tolerance = DefaultVoiceTolerance
	}
	return &TimestampedVerifier{
		Header:    HeaderVoiceSignature,
		Tolerance: tolerance,
		Now:       time.Now,
	}
}

func (v *TimestampedVerifier) Check(body []byte, headers http.Header, secret string) error {
	header := headers.Get(v.Header)
	if header == "" {
		return ErrMissingHeaders
	}
	if secret == "" {
		return ErrSignatureMismatch
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v0":
			sig = value
		}
	}
	if ts == "" || sig == "" {
		return ErrMalformedHeader
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}
	if v.Now().Sub(time.Unix(unix, 0)) > v.Tolerance {
		return ErrStaleTimestamp
	}

	if !constantTimeEqual(sig, signHex(secret, ts+".", body)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (v *TimestampedVerifier) Verify(body []byte, headers http.Header, secret string) bool {
	return v.Check(body, headers, secret) == nil
}

// IsMissingHeaders reports whether err means the request was not signed at all.
func IsMissingHeaders(err error) bool {
	return errors.Is(err, ErrMissingHeaders) || errors.Is(err, ErrMalformedHeader)
}

func signHex(secret, prefix string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(prefix))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// constantTimeEqual rejects on length mismatch, then compares every byte.
func constantTimeEqual(got, want string) bool {
	got = strings.ToLower(got)
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
