package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/dispatch"
	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	emailprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/email"
	smsprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/sms"
	waprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/whatsapp"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

type memStore struct {
	rows map[string]*models.ServiceConfig
}

func (m *memStore) Get(_ context.Context, tenantID, service string) (*models.ServiceConfig, error) {
	return m.rows[tenantID+"/"+service], nil
}

func resolverWith(t *testing.T, rows map[string]*models.ServiceConfig) *tenantconf.Resolver {
	t.Helper()
	r, err := tenantconf.NewResolver(&memStore{rows: rows}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

type fakeResend struct {
	calls int
	raw   *emailprovider.RawResponse
	err   error
}

func (f *fakeResend) Send(context.Context, tenantconf.ResendSettings, *emailprovider.Payload) (*emailprovider.RawResponse, error) {
	f.calls++
	return f.raw, f.err
}

type fakeSMTP struct {
	calls int
	raw   *emailprovider.RawResponse
	err   error
}

func (f *fakeSMTP) Send(context.Context, tenantconf.SMTPSettings, *emailprovider.Payload) (*emailprovider.RawResponse, error) {
	f.calls++
	return f.raw, f.err
}

type fakeSMSGateway struct {
	calls int
	raw   *smsprovider.RawResponse
	err   error
}

func (f *fakeSMSGateway) Send(context.Context, tenantconf.Fast2SMSSettings, *smsprovider.Payload) (*smsprovider.RawResponse, error) {
	f.calls++
	return f.raw, f.err
}

type fakeWhatsApp struct {
	calls int
	raw   *waprovider.RawResponse
	err   error
}

func (f *fakeWhatsApp) SendText(context.Context, tenantconf.WhatsAppSettings, string, string) (*waprovider.RawResponse, error) {
	f.calls++
	return f.raw, f.err
}

func resendRow(tenant string) *models.ServiceConfig {
	return &models.ServiceConfig{
		TenantID:          tenant,
		Service:           models.ServiceResendEmail,
		PrimaryCredential: "rk",
		Settings:          map[string]string{"from": "noreply@acme.test"},
	}
}

func smtpRow(tenant string) *models.ServiceConfig {
	return &models.ServiceConfig{
		TenantID:            tenant,
		Service:             models.ServiceSMTP,
		SecondaryCredential: "pass",
		Settings: map[string]string{
			"host":     "smtp.acme.test",
			"username": "user",
		},
	}
}

func outbound(channel string) *models.OutboundMessage {
	return &models.OutboundMessage{
		ID:        "msg-1",
		TenantID:  "t1",
		Channel:   channel,
		Direction: models.DirectionOutbound,
		Recipient: "dest",
		Subject:   "subject",
		BodyText:  "body",
		CreatedAt: time.Now().UTC(),
	}
}

func TestEmailSenderPrefersResend(t *testing.T) {
	resolver := resolverWith(t, map[string]*models.ServiceConfig{
		"t1/resend_email": resendRow("t1"),
		"t1/smtp":         smtpRow("t1"),
	})
	resend := &fakeResend{raw: &emailprovider.RawResponse{ID: "re-1"}}
	smtp := &fakeSMTP{}

	sender, err := dispatch.NewEmailSender(resolver, resend, smtp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelEmail))
	if result.Status != models.StatusSent || result.ProviderMessageID != "re-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if resend.calls != 1 {
		t.Fatalf("expected one resend call, got %d", resend.calls)
	}
	if smtp.calls != 0 {
		t.Fatalf("smtp must not be consulted when resend is configured, got %d calls", smtp.calls)
	}
}

func TestEmailSenderDoesNotFallBackOnResendFailure(t *testing.T) {
	// The fallback is absence-triggered only: a failing Resend call surfaces
	// as a failed result without touching SMTP.
	resolver := resolverWith(t, map[string]*models.ServiceConfig{
		"t1/resend_email": resendRow("t1"),
		"t1/smtp":         smtpRow("t1"),
	})
	resend := &fakeResend{err: errors.New("resend: http do: connection reset")}
	smtp := &fakeSMTP{}

	sender, err := dispatch.NewEmailSender(resolver, resend, smtp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelEmail))
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if smtp.calls != 0 {
		t.Fatalf("expected smtp untouched after resend failure, got %d calls", smtp.calls)
	}
}

func TestEmailSenderFallsBackWhenResendAbsent(t *testing.T) {
	resolver := resolverWith(t, map[string]*models.ServiceConfig{
		"t1/smtp": smtpRow("t1"),
	})
	resend := &fakeResend{}
	smtp := &fakeSMTP{raw: &emailprovider.RawResponse{ID: "msg-1"}}

	sender, err := dispatch.NewEmailSender(resolver, resend, smtp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelEmail))
	if result.Status != models.StatusSent {
		t.Fatalf("unexpected result: %+v", result)
	}
	if resend.calls != 0 {
		t.Fatalf("expected no resend call without a key, got %d", resend.calls)
	}
	if smtp.calls != 1 {
		t.Fatalf("expected one smtp call, got %d", smtp.calls)
	}
}

func TestEmailSenderReportsNoProvider(t *testing.T) {
	resolver := resolverWith(t, nil)
	resend := &fakeResend{}
	smtp := &fakeSMTP{}

	sender, err := dispatch.NewEmailSender(resolver, resend, smtp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelEmail))
	if result.Status != models.StatusFailed || result.FailureReason != dispatch.ReasonNoEmailProvider {
		t.Fatalf("unexpected result: %+v", result)
	}
	if resend.calls != 0 || smtp.calls != 0 {
		t.Fatalf("expected no provider calls, got resend=%d smtp=%d", resend.calls, smtp.calls)
	}
}

func TestSMSSenderRequiresGatewayConfig(t *testing.T) {
	resolver := resolverWith(t, nil)
	gateway := &fakeSMSGateway{}

	sender, err := dispatch.NewSMSSender(resolver, gateway, zerolog.Nop())
	if err != nil {
		t.Fatalf("new sms sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelSMS))
	if result.Status != models.StatusFailed || result.FailureReason != dispatch.ReasonNoSMSGateway {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gateway.calls != 0 {
		t.Fatalf("expected no gateway call, got %d", gateway.calls)
	}
}

func TestSMSSenderSendsWhenConfigured(t *testing.T) {
	resolver := resolverWith(t, map[string]*models.ServiceConfig{
		"t1/fast2sms": {
			TenantID:          "t1",
			Service:           models.ServiceFast2SMS,
			PrimaryCredential: "f2s-key",
		},
	})
	gateway := &fakeSMSGateway{raw: &smsprovider.RawResponse{ID: "req-9"}}

	sender, err := dispatch.NewSMSSender(resolver, gateway, zerolog.Nop())
	if err != nil {
		t.Fatalf("new sms sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelSMS))
	if result.Status != models.StatusSent || result.ProviderMessageID != "req-9" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWhatsAppSenderConfigChecksPrecedeAPI(t *testing.T) {
	cases := []struct {
		name   string
		rows   map[string]*models.ServiceConfig
		reason string
	}{
		{
			name:   "no row",
			rows:   nil,
			reason: dispatch.ReasonNoWhatsApp,
		},
		{
			name: "token without phone number id",
			rows: map[string]*models.ServiceConfig{
				"t1/whatsapp": {
					TenantID:          "t1",
					Service:           models.ServiceWhatsApp,
					PrimaryCredential: "tok",
				},
			},
			reason: dispatch.ReasonNoWhatsAppPhoneNumber,
		},
	}

	for _, tc := range cases {
		cloud := &fakeWhatsApp{}
		sender, err := dispatch.NewWhatsAppSender(resolverWith(t, tc.rows), cloud, zerolog.Nop())
		if err != nil {
			t.Fatalf("%s: new whatsapp sender: %v", tc.name, err)
		}

		result := sender.Send(context.Background(), "t1", outbound(models.ChannelWhatsApp))
		if result.Status != models.StatusFailed || result.FailureReason != tc.reason {
			t.Fatalf("%s: unexpected result: %+v", tc.name, result)
		}
		if cloud.calls != 0 {
			t.Fatalf("%s: expected no API call, got %d", tc.name, cloud.calls)
		}
	}
}

func TestWhatsAppSenderSendsWhenConfigured(t *testing.T) {
	resolver := resolverWith(t, map[string]*models.ServiceConfig{
		"t1/whatsapp": {
			TenantID:          "t1",
			Service:           models.ServiceWhatsApp,
			PrimaryCredential: "tok",
			Settings:          map[string]string{"phone_number_id": "555"},
		},
	})
	cloud := &fakeWhatsApp{raw: &waprovider.RawResponse{ID: "wamid.1"}}

	sender, err := dispatch.NewWhatsAppSender(resolver, cloud, zerolog.Nop())
	if err != nil {
		t.Fatalf("new whatsapp sender: %v", err)
	}

	result := sender.Send(context.Background(), "t1", outbound(models.ChannelWhatsApp))
	if result.Status != models.StatusSent || result.ProviderMessageID != "wamid.1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if cloud.calls != 1 {
		t.Fatalf("expected one API call, got %d", cloud.calls)
	}
}
