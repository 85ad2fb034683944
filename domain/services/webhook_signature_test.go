package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event_type":"points.update","data":{"points":5}}`)
	secret := "shh"
	valid := SignPayload(secret, body)

	tests := []struct {
		name   string
		header string
		body   []byte
		want   bool
	}{
		{name: "bare hex", header: valid, body: body, want: true},
		{name: "prefixed", header: "sha256=" + valid, body: body, want: true},
		{name: "prefix is case-insensitive", header: "SHA256=" + valid, body: body, want: true},
		{name: "missing", header: "", body: body, want: false},
		{name: "prefix only", header: "sha256=", body: body, want: false},
		{name: "not hex", header: "zzzz", body: body, want: false},
		{name: "tampered body", header: valid, body: []byte(`{"event_type":"points.update","data":{"points":500}}`), want: false},
		{name: "wrong secret", header: SignPayload("other", body), body: body, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, VerifySignature(secret, tt.body, tt.header))
		})
	}
}
