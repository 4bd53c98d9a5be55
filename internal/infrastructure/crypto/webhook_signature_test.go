package crypto

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test_secret"

func standardHeaders(id, ts, sig string) http.Header {
	h := http.Header{}
	h.Set(HeaderWebhookID, id)
	h.Set(HeaderWebhookTimestamp, ts)
	h.Set(HeaderWebhookSignature, sig)
	return h
}

func TestStandardVerifier_Formats(t *testing.T) {
	body := []byte(`{"type":"subscription.active","data":{"subscription_id":"sub_1"}}`)
	sig := signHex(testSecret, "msg_1.1700000000.", body)
	v := NewStandardVerifier()

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"bare hex", sig, true},
		{"versioned", "v1=" + sig, true},
		{"list with rotation", "v0=deadbeef, v1=" + fmt.Sprintf("%064d", 0) + ", v1=" + sig, true},
		{"uppercase hex", "v1=" + upper(sig), true},
		{"only other versions", "v0=" + sig, false},
		{"truncated", "v1=" + sig[:len(sig)-2], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, v.Verify(body, standardHeaders("msg_1", "1700000000", tt.header), testSecret))
		})
	}
}

func TestStandardVerifier_MutationRejected(t *testing.T) {
	body := []byte(`{"type":"payment.failed","data":{"subscription_id":"sub_9"}}`)
	id, ts := "msg_42", "1700000100"
	sig := "v1=" + signHex(testSecret, id+"."+ts+".", body)
	v := NewStandardVerifier()

	assert.True(t, v.Verify(body, standardHeaders(id, ts, sig), testSecret))

	mutatedBody := append([]byte{}, body...)
	mutatedBody[10] ^= 0x01
	assert.False(t, v.Verify(mutatedBody, standardHeaders(id, ts, sig), testSecret), "body")
	assert.False(t, v.Verify(body, standardHeaders("msg_43", ts, sig), testSecret), "id")
	assert.False(t, v.Verify(body, standardHeaders(id, "1700000101", sig), testSecret), "timestamp")
	assert.False(t, v.Verify(body, standardHeaders(id, ts, sig), "whsec_other"), "secret")

	flipped := []byte(sig)
	if flipped[5] == 'a' {
		flipped[5] = 'b'
	} else {
		flipped[5] = 'a'
	}
	assert.False(t, v.Verify(body, standardHeaders(id, ts, string(flipped)), testSecret), "signature")
}

func TestStandardVerifier_MissingHeaders(t *testing.T) {
	v := NewStandardVerifier()
	body := []byte(`{}`)

	err := v.Check(body, standardHeaders("", "1700000000", "v1=abc"), testSecret)
	assert.ErrorIs(t, err, ErrMissingHeaders)
	assert.True(t, IsMissingHeaders(err))

	err = v.Check(body, standardHeaders("msg", "1700000000", "v0=abc,v2=def"), testSecret)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func voiceHeader(ts int64, sig string) http.Header {
	h := http.Header{}
	h.Set(HeaderVoiceSignature, "t="+strconv.FormatInt(ts, 10)+",v0="+sig)
	return h
}

func TestTimestampedVerifier(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewTimestampedVerifier(30 * time.Minute)
	v.Now = func() time.Time { return now }

	body := []byte(`{"type":"post_call_transcription","data":{"conversation_id":"c1"}}`)
	ts := now.Add(-10 * time.Minute).Unix()
	sig := signHex(testSecret, strconv.FormatInt(ts, 10)+".", body)

	assert.True(t, v.Verify(body, voiceHeader(ts, sig), testSecret))

	t.Run("mutations", func(t *testing.T) {
		assert.False(t, v.Verify([]byte(`{"type":"x"}`), voiceHeader(ts, sig), testSecret))
		assert.False(t, v.Verify(body, voiceHeader(ts+1, sig), testSecret))
		assert.False(t, v.Verify(body, voiceHeader(ts, sig[1:]), testSecret))
		assert.False(t, v.Verify(body, voiceHeader(ts, sig), "other"))
	})

	t.Run("stale", func(t *testing.T) {
		old := now.Add(-31 * time.Minute).Unix()
		oldSig := signHex(testSecret, strconv.FormatInt(old, 10)+".", body)
		assert.ErrorIs(t, v.Check(body, voiceHeader(old, oldSig), testSecret), ErrStaleTimestamp)
	})

	t.Run("edge of window", func(t *testing.T) {
		edge := now.Add(-30 * time.Minute).Unix()
		edgeSig := signHex(testSecret, strconv.FormatInt(edge, 10)+".", body)
		assert.True(t, v.Verify(body, voiceHeader(edge, edgeSig), testSecret))
	})

	t.Run("malformed", func(t *testing.T) {
		h := http.Header{}
		h.Set(HeaderVoiceSignature, "t=abc,v0="+sig)
		assert.ErrorIs(t, v.Check(body, h, testSecret), ErrMalformedHeader)
		assert.ErrorIs(t, v.Check(body, http.Header{}, testSecret), ErrMissingHeaders)
	})
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 32
		}
	}
	return string(out)
}

func TestDeliveryTime(t *testing.T) {
	at, ok := DeliveryTime(standardHeaders("msg_1", "1700000000", "v1=x"))
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), at)

	_, ok = DeliveryTime(standardHeaders("msg_1", "yesterday", "v1=x"))
	assert.False(t, ok)
	_, ok = DeliveryTime(http.Header{})
	assert.False(t, ok)
}
