package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "X-Paystack-Signature"

// EventChargeSuccess is the webhook event of a completed charge.
const EventChargeSuccess = "charge.success"

// ErrInvalidSignature is returned when a webhook body does not match its signature.
var ErrInvalidSignature = errors.New("paystack: invalid webhook signature")

// Event is a webhook notification.
type Event struct {
	Event string `json:"event"`
	Data  Charge `json:"data"`
}

// VerifySignature reports whether signature is the HMAC-SHA512 of body under secret.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

// Sign returns the hex signature Paystack would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent verifies the signature and decodes the webhook body.
func ParseEvent(body []byte, signature, secret string) (*Event, error) {
	if !VerifySignature(body, signature, secret) {
		return nil, ErrInvalidSignature
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("paystack: decode event: %w", err)
	}
	return &ev, nil
}
