package dispatch

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	waprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/whatsapp"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

// Configuration failure reasons for the whatsapp channel.
const (
	ReasonNoWhatsApp            = "whatsapp not configured"
	ReasonNoWhatsAppPhoneNumber = "whatsapp phone number id not configured"
)

// WhatsAppAPI is the slice of the Cloud API client the sender depends on.
type WhatsAppAPI interface {
	SendText(ctx context.Context, cfg tenantconf.WhatsAppSettings, to, body string) (*waprovider.RawResponse, error)
}

// WhatsAppSender delivers text messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	resolver *tenantconf.Resolver
	cloud    WhatsAppAPI
	logger   zerolog.Logger
}

// NewWhatsAppSender constructs a WhatsAppSender from its collaborators.
func NewWhatsAppSender(resolver *tenantconf.Resolver, cloud WhatsAppAPI, logger zerolog.Logger) (*WhatsAppSender, error) {
	if resolver == nil {
		return nil, errors.New("whatsapp sender: resolver dependency is required")
	}
	if cloud == nil {
		return nil, errors.New("whatsapp sender: cloud client is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &WhatsAppSender{resolver: resolver, cloud: cloud, logger: logger}, nil
}

// Send implements Sender for the whatsapp channel. The configuration checks
// run before any HTTP request: an unconfigured tenant never generates an
// outbound call.
func (s *WhatsAppSender) Send(ctx context.Context, tenantID string, msg *models.OutboundMessage) Result {
	cfg, err := s.resolver.WhatsApp(ctx, tenantID)
	if err != nil {
		return failed("resolve whatsapp config: " + err.Error())
	}
	if cfg == nil {
		return failed(ReasonNoWhatsApp)
	}
	if cfg.PhoneNumberID == "" {
		return failed(ReasonNoWhatsAppPhoneNumber)
	}

	raw, err := s.cloud.SendText(ctx, *cfg, msg.Recipient, msg.BodyText)
	if err != nil {
		s.logger.Warn().Str("tenant_id", tenantID).Err(err).Msg("whatsapp send failed")
		return failed(err.Error())
	}

	s.logger.Debug().Str("tenant_id", tenantID).Str("provider_id", raw.ID).Msg("whatsapp message sent")
	return sent(raw.ID)
}
