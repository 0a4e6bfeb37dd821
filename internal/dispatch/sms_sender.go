package dispatch

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	smsprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/sms"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

// ReasonNoSMSGateway is reported when the tenant has no Fast2SMS key.
const ReasonNoSMSGateway = "sms gateway not configured"

// SMSGateway is the slice of the Fast2SMS client the sender depends on.
type SMSGateway interface {
	Send(ctx context.Context, cfg tenantconf.Fast2SMSSettings, payload *smsprovider.Payload) (*smsprovider.RawResponse, error)
}

// SMSSender delivers SMS through the tenant's Fast2SMS account.
type SMSSender struct {
	resolver *tenantconf.Resolver
	gateway  SMSGateway
	logger   zerolog.Logger
}

// NewSMSSender constructs an SMSSender from its collaborators.
func NewSMSSender(resolver *tenantconf.Resolver, gateway SMSGateway, logger zerolog.Logger) (*SMSSender, error) {
	if resolver == nil {
		return nil, errors.New("sms sender: resolver dependency is required")
	}
	if gateway == nil {
		return nil, errors.New("sms sender: gateway client is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &SMSSender{resolver: resolver, gateway: gateway, logger: logger}, nil
}

// Send implements Sender for the sms channel.
func (s *SMSSender) Send(ctx context.Context, tenantID string, msg *models.OutboundMessage) Result {
	cfg, err := s.resolver.Fast2SMS(ctx, tenantID)
	if err != nil {
		return failed("resolve fast2sms config: " + err.Error())
	}
	if cfg == nil {
		return failed(ReasonNoSMSGateway)
	}

	segments := smsprovider.EstimateSegments(msg.BodyText)
	s.logger.Debug().Str("tenant_id", tenantID).Int("segments", segments).Msg("sending sms")

	raw, err := s.gateway.Send(ctx, *cfg, &smsprovider.Payload{
		MessageID: msg.ID,
		To:        msg.Recipient,
		Body:      msg.BodyText,
	})
	if err != nil {
		s.logger.Warn().Str("tenant_id", tenantID).Err(err).Msg("fast2sms send failed")
		return failed(err.Error())
	}

	s.logger.Debug().Str("tenant_id", tenantID).Str("provider_id", raw.ID).Msg("sms sent")
	return sent(raw.ID)
}
