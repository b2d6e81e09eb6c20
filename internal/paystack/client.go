// Package paystack is a minimal client for the Paystack transaction API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/core/telegram/netutil"
	"github.com/m3rciful/vtubot/internal/money"
)

const component = "client.paystack"

// DefaultBaseURL is the public Paystack API root.
const DefaultBaseURL = "https://api.paystack.co"

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// StatusSuccess is the verify status of a completed charge.
const StatusSuccess = "success"

// Config holds gateway credentials and limits.
type Config struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

// Client calls the Paystack API.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// APIError is a non-successful gateway response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s (http %d)", e.Message, e.StatusCode)
}

// NewClient returns a Client. Requests are never retried automatically.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		httpClient: netutil.NewClient(netutil.ClientOptions{Timeout: cfg.Timeout, ResponseTimeout: cfg.Timeout}),
		cfg:        cfg,
	}
}

// InitializeRequest starts a hosted checkout. Amount is in kobo.
type InitializeRequest struct {
	Email       string       `json:"email"`
	Amount      money.Amount `json:"amount"`
	Reference   string       `json:"reference"`
	CallbackURL string       `json:"callback_url,omitempty"`
}

// InitializeResult carries the checkout link to show the user.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Customer is the payer attached to a charge.
type Customer struct {
	Email string `json:"email"`
}

// Charge is the transaction object returned by verify and sent in webhooks.
type Charge struct {
	Status          string       `json:"status"`
	Reference       string       `json:"reference"`
	Amount          money.Amount `json:"amount"`
	GatewayResponse string       `json:"gateway_response"`
	Customer        Customer     `json:"customer"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a pending charge and returns its authorization URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Amount <= 0 {
		return nil, errors.New("paystack: amount must be positive")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Reference) == "" {
		return nil, errors.New("paystack: email and reference are required")
	}
	if req.CallbackURL == "" {
		req.CallbackURL = c.cfg.CallbackURL
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("paystack: encode initialize: %w", err)
	}
	var out InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" {
		return nil, errors.New("paystack: initialize returned no authorization url")
	}
	return &out, nil
}

// Verify fetches the current state of the charge with reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Charge, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errors.New("paystack: reference is required")
	}
	var out Charge
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "paystack.call",
			slog.String("path", path),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("paystack: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("paystack: read response: %w", err)
	}
	logger.Debug(ctx, component, "paystack.call",
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("paystack: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("paystack: decode data: %w", err)
	}
	return nil
}
