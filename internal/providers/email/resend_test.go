package email_test

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
	"github.com/ajayykmr/crm-dispatch-go/internal/providers/email"
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

func TestResendSendRequestShape(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusOK, respBody: `{"id":"re-42"}`}
	client := email.NewResendClient(zerolog.Nop(), email.WithResendHTTPClient(httpClient))

	raw, err := client.Send(context.Background(), tenantconf.ResendSettings{
		APIKey:      "rk-secret",
		FromAddress: "noreply@acme.test",
	}, &email.Payload{
		MessageID: "msg-1",
		To:        "alice@example.com",
		Subject:   "Your order shipped",
		Text:      "On its way.",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if raw.ID != "re-42" {
		t.Fatalf("expected provider id from response, got %q", raw.ID)
	}

	if got := httpClient.lastReq.URL.String(); got != "https://api.resend.com/emails" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if got := httpClient.lastReq.Header.Get("Authorization"); got != "Bearer rk-secret" {
		t.Fatalf("expected bearer auth, got %q", got)
	}

	var sent struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
	}
	if err := json.Unmarshal(httpClient.lastBody, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if sent.From != "noreply@acme.test" {
		t.Fatalf("expected configured from address, got %q", sent.From)
	}
	if len(sent.To) != 1 || sent.To[0] != "alice@example.com" {
		t.Fatalf("unexpected recipients %v", sent.To)
	}
	if sent.Subject != "Your order shipped" || sent.Text != "On its way." {
		t.Fatalf("unexpected payload: %+v", sent)
	}
}

func TestResendSendRemoteFailure(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusUnprocessableEntity, respBody: `{"message":"invalid from"}`}
	client := email.NewResendClient(zerolog.Nop(), email.WithResendHTTPClient(httpClient))

	raw, err := client.Send(context.Background(), tenantconf.ResendSettings{APIKey: "rk", FromAddress: "a@b.c"}, &email.Payload{
		To: "alice@example.com",
	})

	var remote *common.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if remote.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", remote.StatusCode)
	}
	if !strings.Contains(remote.Body, "invalid from") {
		t.Fatalf("expected raw body preserved, got %q", remote.Body)
	}
	if raw == nil || raw.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected raw response alongside the error")
	}
}

func TestResendSendFallsBackToMessageID(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusOK, respBody: `{}`}
	client := email.NewResendClient(zerolog.Nop(), email.WithResendHTTPClient(httpClient))

	raw, err := client.Send(context.Background(), tenantconf.ResendSettings{APIKey: "rk", FromAddress: "a@b.c"}, &email.Payload{
		MessageID: "msg-7",
		To:        "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if raw.ID != "msg-7" {
		t.Fatalf("expected fallback to local message id, got %q", raw.ID)
	}
}

func TestResendSendRequiresFromAddress(t *testing.T) {
	httpClient := &fakeHTTPClient{status: http.StatusOK, respBody: `{}`}
	client := email.NewResendClient(zerolog.Nop(), email.WithResendHTTPClient(httpClient))

	_, err := client.Send(context.Background(), tenantconf.ResendSettings{APIKey: "rk"}, &email.Payload{To: "alice@example.com"})
	if err == nil {
		t.Fatalf("expected missing from address to fail")
	}
	if httpClient.calls != 0 {
		t.Fatalf("expected no HTTP call, got %d", httpClient.calls)
	}
}
