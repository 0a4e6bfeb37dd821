package email

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

const defaultResendBaseURL = "https://api.resend.com"

// ResendOption customises the behaviour of the Resend client.
type ResendOption func(*ResendClient)

// WithResendHTTPClient overrides the HTTP client used to talk to Resend.
func WithResendHTTPClient(client common.HTTPClient) ResendOption {
	return func(c *ResendClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithResendBaseURL sets the base API URL. Useful for tests.
func WithResendBaseURL(baseURL string) ResendOption {
	return func(c *ResendClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithResendClock overrides the clock used for timestamps.
func WithResendClock(now func() time.Time) ResendOption {
	return func(c *ResendClient) {
		if now != nil {
			c.now = now
		}
	}
}

// ResendClient submits emails through the Resend transactional API. The
// client holds no credentials: the tenant's API key travels with each call,
// so one client instance serves every tenant for the process lifetime.
type ResendClient struct {
	logger       zerolog.Logger
	httpClient   common.HTTPClient
	baseURL      string
	now          func() time.Time
	maxBodyBytes int64
}

// NewResendClient constructs a Resend API client.
func NewResendClient(logger zerolog.Logger, opts ...ResendOption) *ResendClient {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &ResendClient{
		logger:       logger,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultResendBaseURL,
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

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// Send delivers the payload with the tenant's API key. A non-2xx answer is
// returned as a RemoteError carrying the raw response body.
func (c *ResendClient) Send(ctx context.Context, cfg tenantconf.ResendSettings, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("resend: payload is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("resend: api key is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("resend: recipient is required")
	}

	from := strings.TrimSpace(payload.From)
	if from == "" {
		from = cfg.FromAddress
	}
	if from == "" {
		return nil, errors.New("resend: from address is required")
	}

	body, err := json.Marshal(resendRequest{
		From:    from,
		To:      []string{payload.To},
		Subject: payload.Subject,
		Text:    payload.Text,
		HTML:    payload.HTML,
	})
	if err != nil {
		return nil, fmt.Errorf("resend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("resend: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resend: http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := common.ReadBody(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("resend: %w", err)
	}

	raw := &RawResponse{
		Code:      resp.StatusCode,
		Body:      respBody,
		Timestamp: c.now(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &common.RemoteError{Provider: "resend", StatusCode: resp.StatusCode, Body: respBody}
	}

	var parsed resendResponse
	if err := json.Unmarshal([]byte(respBody), &parsed); err == nil {
		raw.ID = parsed.ID
	}
	if raw.ID == "" {
		raw.ID = payload.MessageID
	}

	c.logger.Debug().Str("provider_id", raw.ID).Msg("resend accepted message")
	return raw, nil
}
