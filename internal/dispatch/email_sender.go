package dispatch

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	emailprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/email"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

// ReasonNoEmailProvider is reported when a tenant has neither a usable
// Resend key nor a complete SMTP configuration.
const ReasonNoEmailProvider = "no email provider configured"

// ResendAPI is the slice of the Resend client the email sender depends on.
type ResendAPI interface {
	Send(ctx context.Context, cfg tenantconf.ResendSettings, payload *emailprovider.Payload) (*emailprovider.RawResponse, error)
}

// SMTPAPI is the slice of the SMTP client the email sender depends on.
type SMTPAPI interface {
	Send(ctx context.Context, cfg tenantconf.SMTPSettings, payload *emailprovider.Payload) (*emailprovider.RawResponse, error)
}

// EmailSender delivers email through Resend when the tenant configured an
// API key, otherwise through the tenant's SMTP relay. The fallback is
// strictly absence-triggered: once the Resend path is selected, its errors
// surface directly and SMTP is never consulted. A tenant therefore always
// knows which provider carried a given message.
type EmailSender struct {
	resolver *tenantconf.Resolver
	resend   ResendAPI
	smtp     SMTPAPI
	logger   zerolog.Logger
}

// NewEmailSender constructs an EmailSender from its collaborators.
func NewEmailSender(resolver *tenantconf.Resolver, resend ResendAPI, smtp SMTPAPI, logger zerolog.Logger) (*EmailSender, error) {
	if resolver == nil {
		return nil, errors.New("email sender: resolver dependency is required")
	}
	if resend == nil {
		return nil, errors.New("email sender: resend client is required")
	}
	if smtp == nil {
		return nil, errors.New("email sender: smtp client is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &EmailSender{resolver: resolver, resend: resend, smtp: smtp, logger: logger}, nil
}

// Send implements Sender for the email channel.
func (s *EmailSender) Send(ctx context.Context, tenantID string, msg *models.OutboundMessage) Result {
	payload := &emailprovider.Payload{
		MessageID: msg.ID,
		To:        msg.Recipient,
		Subject:   msg.Subject,
		Text:      msg.BodyText,
		HTML:      msg.BodyHTML,
	}

	resendCfg, err := s.resolver.ResendEmail(ctx, tenantID)
	if err != nil {
		return failed("resolve resend config: " + err.Error())
	}
	if resendCfg != nil {
		raw, err := s.resend.Send(ctx, *resendCfg, payload)
		if err != nil {
			s.logger.Warn().Str("tenant_id", tenantID).Err(err).Msg("resend send failed")
			return failed(err.Error())
		}
		s.logger.Debug().Str("tenant_id", tenantID).Str("provider_id", raw.ID).Msg("email sent via resend")
		return sent(raw.ID)
	}

	smtpCfg, err := s.resolver.SMTP(ctx, tenantID)
	if err != nil {
		return failed("resolve smtp config: " + err.Error())
	}
	if smtpCfg == nil {
		return failed(ReasonNoEmailProvider)
	}

	raw, err := s.smtp.Send(ctx, *smtpCfg, payload)
	if err != nil {
		s.logger.Warn().Str("tenant_id", tenantID).Err(err).Msg("smtp send failed")
		return failed(err.Error())
	}
	s.logger.Debug().Str("tenant_id", tenantID).Str("provider_id", raw.ID).Msg("email sent via smtp")
	return sent(raw.ID)
}
