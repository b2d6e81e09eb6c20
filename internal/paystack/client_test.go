package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vtubot/internal/money"
)

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_x", r.Header.Get("Authorization"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, float64(50000), got["amount"])
		assert.Equal(t, "42@telegram.bot", got["email"])
		assert.Equal(t, "https://example.com/done", got["callback_url"])

		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_x", CallbackURL: "https://example.com/done"})
	res, err := c.Initialize(context.Background(), InitializeRequest{Email: "42@telegram.bot", Amount: money.Naira(500), Reference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
}

func TestInitializeGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, SecretKey: "bad"})
	_, err := c.Initialize(context.Background(), InitializeRequest{Email: "a@b", Amount: 100, Reference: "r"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid key", apiErr.Message)
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/ref-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","reference":"ref-9","amount":250000,"gateway_response":"Successful","customer":{"email":"9@telegram.bot"}}}`))
	}))
	defer srv.Close()

	ch, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "k"}).Verify(context.Background(), "ref-9")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, ch.Status)
	assert.Equal(t, money.Naira(2500), ch.Amount)
	assert.Equal(t, "9@telegram.bot", ch.Customer.Email)
}

func TestSignatureVerification(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"r","amount":100,"customer":{"email":"1@telegram.bot"}}}`)
	sig := Sign(body, "secret")

	assert.True(t, VerifySignature(body, sig, "secret"))
	assert.False(t, VerifySignature(body, sig, "other"))
	assert.False(t, VerifySignature(append(body, ' '), sig, "secret"))
	assert.False(t, VerifySignature(body, "not-hex", "secret"))
	assert.False(t, VerifySignature(body, sig, ""))

	ev, err := ParseEvent(body, sig, "secret")
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Event)
	assert.Equal(t, money.Amount(100), ev.Data.Amount)

	_, err = ParseEvent(body, "00", "secret")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
