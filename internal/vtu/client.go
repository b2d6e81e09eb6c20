// Package vtu talks to the MobileVTU vending API.
package vtu

import (
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

	"github.com/google/uuid"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/core/telegram/netutil"
	"github.com/m3rciful/vtubot/internal/phone"
)

const component = "client.vtu"

const (
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 1 << 20
)

// Product types accepted by the topup endpoint.
const (
	TypeAirtime = "airtime"
	TypeData    = "data"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// ProviderError is an explicit error reported by the vending API. Message is
// shown to users unless it matches a sensitive pattern.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "vtu: provider error: " + e.Message
}

// Config holds API credentials and limits. BaseURL already embeds the API key,
// e.g. https://api.mobilevtu.com/v1/<key>.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client is a MobileVTU API client. Calls are never retried because topup is
// not idempotent.
type Client struct {
	httpClient *http.Client
	cfg        Config
	newID      func() string
}

// NewClient returns a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		httpClient: netutil.NewClient(netutil.ClientOptions{Timeout: cfg.Timeout, ResponseTimeout: cfg.Timeout}),
		cfg:        cfg,
		newID:      uuid.NewString,
	}
}

// Request describes a single top-up. Value is the naira amount for airtime
// and the plan id for data.
type Request struct {
	Operator phone.Operator
	Type     string
	Value    string
	Phone    string
}

// Result is the provider's acknowledgement of a successful vend.
type Result struct {
	RequestID string
	Message   string
	Data      json.RawMessage
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TopUp vends airtime or data to req.Phone.
func (c *Client) TopUp(ctx context.Context, req Request) (*Result, error) {
	if req.Operator == phone.None {
		return nil, errors.New("vtu: operator is required")
	}
	if req.Type != TypeAirtime && req.Type != TypeData {
		return nil, fmt.Errorf("vtu: unknown product type %q", req.Type)
	}
	form := url.Values{}
	form.Set("operator", req.Operator.Label())
	form.Set("type", req.Type)
	form.Set("value", req.Value)
	form.Set("phone", req.Phone)

	id, resp, err := c.post(ctx, "topup", form)
	if err != nil {
		return nil, err
	}
	return &Result{RequestID: id, Message: resp.Message, Data: resp.Data}, nil
}

// FetchPlans lists the data plans currently offered for op.
func (c *Client) FetchPlans(ctx context.Context, op phone.Operator) ([]Plan, error) {
	if op == phone.None {
		return nil, errors.New("vtu: operator is required")
	}
	form := url.Values{}
	form.Set("operator", op.Label())

	_, resp, err := c.post(ctx, "fetch_data_plans", form)
	if err != nil {
		return nil, err
	}
	var plans []Plan
	if err := json.Unmarshal(resp.Data, &plans); err != nil {
		return nil, fmt.Errorf("vtu: decode plans: %w", err)
	}
	return plans, nil
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (string, *response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("vtu: build request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set("Api-Token", c.cfg.APIToken)
	req.Header.Set("Request-Id", requestID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "vtu.call",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return requestID, nil, fmt.Errorf("vtu: %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return requestID, nil, fmt.Errorf("vtu: %s: read response: %w", endpoint, err)
	}

	var out response
	decodeErr := json.Unmarshal(raw, &out)
	logger.Debug(ctx, component, "vtu.call",
		slog.String("endpoint", endpoint),
		slog.String("request_id", requestID),
		slog.Int("http_status", httpResp.StatusCode),
		slog.String("provider_status", out.Status),
		slog.Duration("duration", logger.Took(start)),
	)

	if decodeErr == nil && strings.EqualFold(out.Status, statusError) {
		return requestID, nil, &ProviderError{Message: out.Message}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return requestID, nil, fmt.Errorf("vtu: %s: unexpected http status %d", endpoint, httpResp.StatusCode)
	}
	if decodeErr != nil {
		return requestID, nil, fmt.Errorf("vtu: %s: decode response: %w", endpoint, decodeErr)
	}
	if !strings.EqualFold(out.Status, statusSuccess) {
		return requestID, nil, &ProviderError{Message: out.Message}
	}
	return requestID, &out, nil
}
