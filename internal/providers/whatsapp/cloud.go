package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/providers/common"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com"
	defaultGraphVersion = "v19.0"
)

// CloudOption customises the behaviour of the Cloud API client.
type CloudOption func(*CloudClient)

// WithCloudHTTPClient overrides the HTTP client used to talk to the Graph API.
func WithCloudHTTPClient(client common.HTTPClient) CloudOption {
	return func(c *CloudClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCloudBaseURL sets the Graph API base URL. Useful for tests.
func WithCloudBaseURL(baseURL string) CloudOption {
	return func(c *CloudClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithCloudVersion overrides the Graph API version path segment.
func WithCloudVersion(version string) CloudOption {
	return func(c *CloudClient) {
		if strings.TrimSpace(version) != "" {
			c.version = strings.Trim(version, "/")
		}
	}
}

// WithCloudClock overrides the clock used for timestamps.
func WithCloudClock(now func() time.Time) CloudOption {
	return func(c *CloudClient) {
		if now != nil {
			c.now = now
		}
	}
}

// CloudClient talks to the WhatsApp Business Cloud API. Tenant credentials
// travel with each call, so a single instance serves all tenants.
type CloudClient struct {
	logger       zerolog.Logger
	httpClient   common.HTTPClient
	baseURL      string
	version      string
	now          func() time.Time
	maxBodyBytes int64
}

// NewCloudClient constructs a Cloud API client.
func NewCloudClient(logger zerolog.Logger, opts ...CloudOption) *CloudClient {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &CloudClient{
		logger:       logger,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultGraphBaseURL,
		version:      defaultGraphVersion,
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

type textMessageRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textContent `json:"text"`
}

type textContent struct {
	Body string `json:"body"`
}

type textMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText delivers a plain text message through the tenant's phone number.
func (c *CloudClient) SendText(ctx context.Context, cfg tenantconf.WhatsAppSettings, to, body string) (*RawResponse, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp cloud: access token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp cloud: phone number id is required")
	}
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("whatsapp cloud: recipient is required")
	}

	payload, err := json.Marshal(textMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textContent{Body: body},
	})
	if err != nil {
		return nil, fmt.Errorf("whatsapp cloud: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, url.PathEscape(cfg.PhoneNumberID))
	respBody, code, err := c.post(ctx, endpoint, cfg.AccessToken, payload)
	if err != nil {
		return nil, err
	}

	raw := &RawResponse{
		Code:      code,
		Body:      respBody,
		Timestamp: c.now(),
	}

	if code < 200 || code >= 300 {
		return raw, &common.RemoteError{Provider: "whatsapp cloud", StatusCode: code, Body: respBody}
	}

	var parsed textMessageResponse
	if err := json.Unmarshal([]byte(respBody), &parsed); err == nil && len(parsed.Messages) > 0 {
		raw.ID = parsed.Messages[0].ID
	}

	c.logger.Debug().Str("provider_id", raw.ID).Msg("whatsapp cloud accepted message")
	return raw, nil
}

type templateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitTemplate registers a template definition with the tenant's WABA. A
// non-success answer is surfaced as a RemoteError carrying the raw body so
// Meta's rejection detail reaches the caller intact.
func (c *CloudClient) SubmitTemplate(ctx context.Context, cfg tenantconf.WhatsAppSettings, sub *TemplateSubmission) (*TemplateResult, error) {
	if sub == nil {
		return nil, errors.New("whatsapp cloud: template submission is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp cloud: access token is required")
	}
	if strings.TrimSpace(cfg.WABAID) == "" {
		return nil, errors.New("whatsapp cloud: waba id is required")
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("whatsapp cloud: marshal template: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/message_templates", c.baseURL, c.version, url.PathEscape(cfg.WABAID))
	respBody, code, err := c.post(ctx, endpoint, cfg.AccessToken, payload)
	if err != nil {
		return nil, err
	}

	if code < 200 || code >= 300 {
		return nil, &common.RemoteError{Provider: "whatsapp cloud", StatusCode: code, Body: respBody}
	}

	result := &TemplateResult{
		Code:       code,
		Body:       respBody,
		RawPayload: string(payload),
	}
	var parsed templateResponse
	if err := json.Unmarshal([]byte(respBody), &parsed); err == nil {
		result.RemoteID = parsed.ID
		result.Status = parsed.Status
	}

	c.logger.Debug().Str("template_name", sub.Name).Str("remote_id", result.RemoteID).Msg("whatsapp template submitted")
	return result, nil
}

func (c *CloudClient) post(ctx context.Context, endpoint, token string, payload []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("whatsapp cloud: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("whatsapp cloud: http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := common.ReadBody(resp.Body, c.maxBodyBytes)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("whatsapp cloud: %w", err)
	}
	return body, resp.StatusCode, nil
}
