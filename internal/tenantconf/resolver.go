package tenantconf

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// Store is the read-only lookup over tenant service configuration rows.
// Implementations return (nil, nil) when no row exists for the pair: absence
// is a normal outcome that callers handle as "channel unconfigured", never
// an error.
type Store interface {
	Get(ctx context.Context, tenantID, service string) (*models.ServiceConfig, error)
}

// ResendSettings is the typed configuration for the Resend email API.
type ResendSettings struct {
	APIKey      string
	FromAddress string
}

// SMTPSettings is the typed configuration for the SMTP relay fallback.
type SMTPSettings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

// Fast2SMSSettings is the typed configuration for the Fast2SMS gateway.
type Fast2SMSSettings struct {
	APIKey   string
	SenderID string
}

// WhatsAppSettings is the typed configuration for the WhatsApp Cloud API.
// PhoneNumberID is required for sending, WABAID for template management;
// callers validate the field their operation needs.
type WhatsAppSettings struct {
	AccessToken   string
	PhoneNumberID string
	WABAID        string
}

// Resolver converts stored service configuration rows into typed per-service
// settings. The untyped settings map never leaves this package.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver constructs a Resolver over the supplied store.
func NewResolver(store Store, logger zerolog.Logger) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("tenantconf: store dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Resolver{store: store, logger: logger}, nil
}

// Resolve returns the raw configuration row for the pair, or nil when the
// tenant has not configured the service.
func (r *Resolver) Resolve(ctx context.Context, tenantID, service string) (*models.ServiceConfig, error) {
	cfg, err := r.store.Get(ctx, tenantID, service)
	if err != nil {
		return nil, fmt.Errorf("tenantconf: get %s for tenant %s: %w", service, tenantID, err)
	}
	return cfg, nil
}

// ResendEmail returns the tenant's Resend settings, or nil when the service
// is unconfigured or missing its API key.
func (r *Resolver) ResendEmail(ctx context.Context, tenantID string) (*ResendSettings, error) {
	cfg, err := r.Resolve(ctx, tenantID, models.ServiceResendEmail)
	if err != nil {
		return nil, err
	}
	if cfg == nil || strings.TrimSpace(cfg.PrimaryCredential) == "" {
		return nil, nil
	}
	return &ResendSettings{
		APIKey:      strings.TrimSpace(cfg.PrimaryCredential),
		FromAddress: strings.TrimSpace(cfg.Setting("from")),
	}, nil
}

// SMTP returns the tenant's SMTP settings, or nil when the service is
// unconfigured or missing any of host, username or password.
func (r *Resolver) SMTP(ctx context.Context, tenantID string) (*SMTPSettings, error) {
	cfg, err := r.Resolve(ctx, tenantID, models.ServiceSMTP)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	s := &SMTPSettings{
		Host:        strings.TrimSpace(cfg.Setting("host")),
		Username:    strings.TrimSpace(cfg.Setting("username")),
		Password:    cfg.SecondaryCredential,
		FromAddress: strings.TrimSpace(cfg.Setting("from")),
		Port:        587,
	}
	if raw := strings.TrimSpace(cfg.Setting("port")); raw != "" {
		port, convErr := strconv.Atoi(raw)
		if convErr != nil || port <= 0 || port > 65535 {
			r.logger.Warn().Str("tenant_id", tenantID).Str("port", raw).Msg("ignoring invalid smtp port")
		} else {
			s.Port = port
		}
	}

	if s.Host == "" || s.Username == "" || s.Password == "" {
		return nil, nil
	}
	return s, nil
}

// Fast2SMS returns the tenant's SMS gateway settings, or nil when the
// service is unconfigured or missing its API key.
func (r *Resolver) Fast2SMS(ctx context.Context, tenantID string) (*Fast2SMSSettings, error) {
	cfg, err := r.Resolve(ctx, tenantID, models.ServiceFast2SMS)
	if err != nil {
		return nil, err
	}
	if cfg == nil || strings.TrimSpace(cfg.PrimaryCredential) == "" {
		return nil, nil
	}
	return &Fast2SMSSettings{
		APIKey:   strings.TrimSpace(cfg.PrimaryCredential),
		SenderID: strings.TrimSpace(cfg.Setting("sender_id")),
	}, nil
}

// WhatsApp returns the tenant's Cloud API settings, or nil when the service
// is unconfigured or missing its access token. PhoneNumberID and WABAID may
// still be empty; callers check the one their operation requires.
func (r *Resolver) WhatsApp(ctx context.Context, tenantID string) (*WhatsAppSettings, error) {
	cfg, err := r.Resolve(ctx, tenantID, models.ServiceWhatsApp)
	if err != nil {
		return nil, err
	}
	if cfg == nil || strings.TrimSpace(cfg.PrimaryCredential) == "" {
		return nil, nil
	}
	return &WhatsAppSettings{
		AccessToken:   strings.TrimSpace(cfg.PrimaryCredential),
		PhoneNumberID: strings.TrimSpace(cfg.Setting("phone_number_id")),
		WABAID:        strings.TrimSpace(cfg.Setting("waba_id")),
	}, nil
}
