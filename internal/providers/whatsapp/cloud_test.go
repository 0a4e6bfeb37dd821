package whatsapp_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/providers/common"
	"github.com/ajayykmr/crm-dispatch-go/internal/providers/whatsapp"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

type fakeHTTPClient struct {
	calls    int
	lastReq  *http.Request
	lastBody []byte
	status   int
	respBody string
	err      error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	f.lastReq = req
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.lastBody = b
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.respBody)),
		Header:     make(http.Header),
	}, nil
}

func settings() tenantconf.WhatsAppSettings {
	return tenantconf.WhatsAppSettings{
		AccessToken:   "tok-secret",
		PhoneNumberID: "555000111",
		WABAID:        "waba-999",
	}
}

func TestSendTextRequestShape(t *testing.T) {
	httpClient := &fakeHTTPClient{
		status:   http.StatusOK,
		respBody: `{"messages":[{"id":"wamid.abc"}]}`,
	}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	raw, err := client.SendText(context.Background(), settings(), "919900112233", "hello from dispatch")
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if raw.ID != "wamid.abc" {
		t.Fatalf("expected message id from response, got %q", raw.ID)
	}

	wantURL := "https://graph.facebook.com/v19.0/555000111/messages"
	if got := httpClient.lastReq.URL.String(); got != wantURL {
		t.Fatalf("expected endpoint %q, got %q", wantURL, got)
	}
	if got := httpClient.lastReq.Header.Get("Authorization"); got != "Bearer tok-secret" {
		t.Fatalf("expected bearer auth, got %q", got)
	}

	var sent struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	if err := json.Unmarshal(httpClient.lastBody, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if sent.MessagingProduct != "whatsapp" || sent.Type != "text" {
		t.Fatalf("unexpected envelope: %+v", sent)
	}
	if sent.To != "919900112233" || sent.Text.Body != "hello from dispatch" {
		t.Fatalf("unexpected content: %+v", sent)
	}
}

func TestSendTextRemoteFailure(t *testing.T) {
	httpClient := &fakeHTTPClient{
		status:   http.StatusBadRequest,
		respBody: `{"error":{"message":"(#131030) Recipient phone number not in allowed list"}}`,
	}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	raw, err := client.SendText(context.Background(), settings(), "91", "hi")

	var remote *common.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if !strings.Contains(remote.Body, "131030") {
		t.Fatalf("expected raw graph error preserved, got %q", remote.Body)
	}
	if raw == nil || raw.Code != http.StatusBadRequest {
		t.Fatalf("expected raw response alongside the error")
	}
}

func TestSendTextRequiresConfiguration(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusOK, respBody: `{}`}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	cfg := settings()
	cfg.PhoneNumberID = ""
	if _, err := client.SendText(context.Background(), cfg, "91", "hi"); err == nil {
		t.Fatalf("expected missing phone number id to fail")
	}
	if httpClient.calls != 0 {
		t.Fatalf("expected no HTTP call, got %d", httpClient.calls)
	}
}

func TestSubmitTemplateRequestShape(t *testing.T) {
	httpClient := &fakeHTTPClient{
		status:   http.StatusOK,
		respBody: `{"id":"1234567890","status":"PENDING"}`,
	}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	sub := &whatsapp.TemplateSubmission{
		Name:     "order_confirmation",
		Category: "UTILITY",
		Language: "en_US",
		Components: []whatsapp.TemplateComponent{
			{
				Type: "BODY",
				Text: "Hi {{1}}, order {{2}} confirmed.",
				Example: &whatsapp.ComponentExample{
					BodyText: [][]string{{"Sample 1", "Sample 2"}},
				},
			},
		},
	}

	result, err := client.SubmitTemplate(context.Background(), settings(), sub)
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if result.RemoteID != "1234567890" || result.Status != "PENDING" {
		t.Fatalf("unexpected result: %+v", result)
	}

	wantURL := "https://graph.facebook.com/v19.0/waba-999/message_templates"
	if got := httpClient.lastReq.URL.String(); got != wantURL {
		t.Fatalf("expected endpoint %q, got %q", wantURL, got)
	}

	// RawPayload preserves the submitted JSON byte for byte.
	if result.RawPayload != string(httpClient.lastBody) {
		t.Fatalf("expected raw payload to match the request body")
	}
	var echoed whatsapp.TemplateSubmission
	if err := json.Unmarshal([]byte(result.RawPayload), &echoed); err != nil {
		t.Fatalf("decode raw payload: %v", err)
	}
	if len(echoed.Components) != 1 || echoed.Components[0].Example == nil {
		t.Fatalf("expected body example to survive serialization: %+v", echoed)
	}
}

func TestSubmitTemplateRemoteRejection(t *testing.T) {
	httpClient := &fakeHTTPClient{
		status:   http.StatusBadRequest,
		respBody: `{"error":{"message":"Invalid parameter","error_user_msg":"Template name already exists"}}`,
	}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	result, err := client.SubmitTemplate(context.Background(), settings(), &whatsapp.TemplateSubmission{
		Name:     "dup_name",
		Category: "UTILITY",
		Language: "en_US",
	})
	if result != nil {
		t.Fatalf("expected nil result on rejection")
	}

	var remote *common.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if !strings.Contains(remote.Body, "Template name already exists") {
		t.Fatalf("expected rejection detail preserved, got %q", remote.Body)
	}
}

func TestSubmitTemplateRequiresWABA(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusOK, respBody: `{}`}
	client := whatsapp.NewCloudClient(zerolog.Nop(), whatsapp.WithCloudHTTPClient(httpClient))

	cfg := settings()
	cfg.WABAID = ""
	if _, err := client.SubmitTemplate(context.Background(), cfg, &whatsapp.TemplateSubmission{Name: "x"}); err == nil {
		t.Fatalf("expected missing waba id to fail")
	}
	if httpClient.calls != 0 {
		t.Fatalf("expected no HTTP call, got %d", httpClient.calls)
	}
}
