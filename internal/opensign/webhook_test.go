package opensign

import (
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	return hex.EncodeToString(mac(secret, body))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"event":"signed","signatureRequestId":"doc-1"}`)
	valid := sign("secret", body)

	tests := []struct {
		name   string
		secret string
		body   []byte
		header string
		want   bool
	}{
		{name: "valid", secret: "secret", body: body, header: valid, want: true},
		{name: "valid with whitespace", secret: "secret", body: body, header: " " + valid + " ", want: true},
		{name: "missing header", secret: "secret", body: body, header: "", want: false},
		{name: "not hex", secret: "secret", body: body, header: "zz", want: false},
		{name: "wrong secret", secret: "other", body: body, header: valid, want: false},
		{name: "tampered body", secret: "secret", body: append([]byte(" "), body...), header: valid, want: false},
		{name: "empty secret", secret: "", body: body, header: sign("", body), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.secret, tt.body, tt.header); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	e, err := ParseEvent([]byte(`{"event":"declined","signatureRequestId":"doc-9"}`))
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if e.Event != EventDeclined || e.SignatureRequestID != "doc-9" || !e.Known() {
		t.Errorf("Unexpected event %+v", e)
	}

	unknown := Event{Event: "viewed"}
	if unknown.Known() {
		t.Error("viewed should not be a known event")
	}
}
