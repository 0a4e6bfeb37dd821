package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/providers/common"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

const defaultFast2SMSBaseURL = "https://www.fast2sms.com/dev/bulkV2"

// Payload encapsulates one SMS to be delivered by the gateway.
type Payload struct {
	MessageID string
	To        string
	Body      string
}

// RawResponse captures the low-level gateway response for an SMS send.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// Fast2SMSOption customises the behaviour of the gateway client.
type Fast2SMSOption func(*Fast2SMSClient)

// WithFast2SMSHTTPClient overrides the HTTP client used to talk to the gateway.
func WithFast2SMSHTTPClient(client common.HTTPClient) Fast2SMSOption {
	return func(c *Fast2SMSClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithFast2SMSBaseURL sets the gateway endpoint. Useful for tests.
func WithFast2SMSBaseURL(baseURL string) Fast2SMSOption {
	return func(c *Fast2SMSClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithFast2SMSClock overrides the clock used for timestamps.
func WithFast2SMSClock(now func() time.Time) Fast2SMSOption {
	return func(c *Fast2SMSClient) {
		if now != nil {
			c.now = now
		}
	}
}

// Fast2SMSClient submits messages through the Fast2SMS bulk endpoint. The
// tenant's API key travels with each call.
type Fast2SMSClient struct {
	logger       zerolog.Logger
	httpClient   common.HTTPClient
	baseURL      string
	now          func() time.Time
	maxBodyBytes int64
}

// NewFast2SMSClient constructs a gateway client.
func NewFast2SMSClient(logger zerolog.Logger, opts ...Fast2SMSOption) *Fast2SMSClient {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &Fast2SMSClient{
		logger:       logger,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultFast2SMSBaseURL,
		now:          time.Now,
		maxBodyBytes: common.DefaultBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type fast2smsRequest struct {
	Route   string `json:"route"`
	Message string `json:"message"`
	Numbers string `json:"numbers"`
}

type fast2smsResponse struct {
	Return    bool     `json:"return"`
	RequestID string   `json:"request_id"`
	Message   []string `json:"message"`
}

// Send delivers the payload on the quick ("q") route. The gateway expects
// the raw API key in the authorization header, not a Bearer token.
func (c *Fast2SMSClient) Send(ctx context.Context, cfg tenantconf.Fast2SMSSettings, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("fast2sms: payload is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("fast2sms: api key is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("fast2sms: recipient is required")
	}

	body, err := json.Marshal(fast2smsRequest{
		Route:   "q",
		Message: payload.Body,
		Numbers: payload.To,
	})
	if err != nil {
		return nil, fmt.Errorf("fast2sms: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fast2sms: new request: %w", err)
	}
	req.Header.Set("Authorization", cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fast2sms: http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := common.ReadBody(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("fast2sms: %w", err)
	}

	raw := &RawResponse{
		Code:      resp.StatusCode,
		Body:      respBody,
		Timestamp: c.now(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &common.RemoteError{Provider: "fast2sms", StatusCode: resp.StatusCode, Body: respBody}
	}

	var parsed fast2smsResponse
	if err := json.Unmarshal([]byte(respBody), &parsed); err != nil {
		return raw, fmt.Errorf("fast2sms: decode response: %w", err)
	}
	if !parsed.Return {
		return raw, &common.RemoteError{Provider: "fast2sms", StatusCode: resp.StatusCode, Body: respBody}
	}

	raw.ID = parsed.RequestID
	c.logger.Debug().Str("provider_id", raw.ID).Msg("fast2sms accepted message")
	return raw, nil
}
