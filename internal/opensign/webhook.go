package opensign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Signature"

// Event names the provider sends
const (
	EventSigned   = "signed"
	EventDeclined = "declined"
	EventExpired  = "expired"
)

// Event is the decoded notification envelope
type Event struct {
	Event              string `json:"event"`
	SignatureRequestID string `json:"signatureRequestId"`
}

// Known reports whether the event is one the lifecycle acts on
func (e Event) Known() bool {
	switch e.Event {
	case EventSigned, EventDeclined, EventExpired:
		return true
	}
	return false
}

// Verify checks signatureHex against the HMAC of the exact raw body
func Verify(secret string, rawBody []byte, signatureHex string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signatureHex))
	if err != nil || len(provided) == 0 {
		return false
	}

	return hmac.Equal(mac(secret, rawBody), provided)
}

func mac(secret string, body []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(body)
	return h.Sum(nil)
}

// ParseEvent decodes a verified body
func ParseEvent(rawBody []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(rawBody, &e)
	return e, err
}
