// Package provision submits validated WhatsApp template definitions to the
// Cloud API and records a provisional local copy. Status transitions after
// submission belong to the external template synchronization job; the only
// write this package performs is the draft upsert.
package provision

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
	waprovider "github.com/ajayykmr/crm-dispatch-go/internal/providers/whatsapp"
	"github.com/ajayykmr/crm-dispatch-go/internal/store"
	"github.com/ajayykmr/crm-dispatch-go/internal/template"
	"github.com/ajayykmr/crm-dispatch-go/internal/tenantconf"
)

// Configuration errors, reported before any network call and distinct from a
// remote rejection so the caller can direct the tenant to settings.
var (
	ErrWhatsAppNotConfigured = errors.New("whatsapp access token not configured")
	ErrWABANotConfigured     = errors.New("whatsapp business account id not configured")
)

// TemplateSubmitter is the slice of the Cloud API client the provisioner
// depends on.
type TemplateSubmitter interface {
	SubmitTemplate(ctx context.Context, cfg tenantconf.WhatsAppSettings, sub *waprovider.TemplateSubmission) (*waprovider.TemplateResult, error)
}

// Provisioner submits templates and persists the provisional draft row.
type Provisioner struct {
	resolver  *tenantconf.Resolver
	cloud     TemplateSubmitter
	templates store.TemplateStore
	logger    zerolog.Logger
}

// NewProvisioner constructs a Provisioner from its collaborators.
func NewProvisioner(resolver *tenantconf.Resolver, cloud TemplateSubmitter, templates store.TemplateStore, logger zerolog.Logger) (*Provisioner, error) {
	if resolver == nil {
		return nil, errors.New("provisioner: resolver dependency is required")
	}
	if cloud == nil {
		return nil, errors.New("provisioner: cloud client is required")
	}
	if templates == nil {
		return nil, errors.New("provisioner: template store is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Provisioner{resolver: resolver, cloud: cloud, templates: templates, logger: logger}, nil
}

// Submit registers the validated template with the tenant's WABA and, on
// success, upserts the local row keyed on (tenant, name:language) with
// status draft and review status PENDING. Remote failures surface as
// *common.RemoteError carrying the raw response body.
func (p *Provisioner) Submit(ctx context.Context, tenantID string, vt *template.Validated) (*models.WhatsAppTemplate, error) {
	if vt == nil {
		return nil, errors.New("provisioner: validated template is required")
	}

	cfg, err := p.resolver.WhatsApp(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve whatsapp config: %w", err)
	}
	if cfg == nil {
		return nil, ErrWhatsAppNotConfigured
	}
	if cfg.WABAID == "" {
		return nil, ErrWABANotConfigured
	}

	submission := buildSubmission(vt)

	result, err := p.cloud.SubmitTemplate(ctx, *cfg, submission)
	if err != nil {
		p.logger.Warn().Str("tenant_id", tenantID).Str("template_name", vt.Name).Err(err).
			Msg("template submission failed")
		return nil, err
	}

	providerTemplateID := vt.Name + ":" + vt.Language
	stored, err := p.templates.UpsertTemplate(ctx, &models.WhatsAppTemplate{
		TenantID:           tenantID,
		ProviderTemplateID: providerTemplateID,
		Name:               vt.Name,
		Category:           vt.Category,
		Language:           vt.Language,
		HeaderType:         vt.HeaderType,
		HeaderText:         vt.HeaderText,
		BodyText:           vt.BodyText,
		FooterText:         vt.FooterText,
		PlaceholderCount:   len(vt.Placeholders),
		SampleValues:       vt.Samples,
		Status:             models.TemplateStatusDraft,
		ReviewStatus:       models.ReviewStatusPending,
		RawPayload:         result.RawPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("persist provisional template: %w", err)
	}

	p.logger.Info().
		Str("tenant_id", tenantID).
		Str("provider_template_id", providerTemplateID).
		Str("remote_id", result.RemoteID).
		Msg("template provisioned as draft")

	return stored, nil
}

// buildSubmission assembles the components array: header only for a text
// header with non-empty text, body always (with nested example values only
// when placeholders exist), footer only when present.
func buildSubmission(vt *template.Validated) *waprovider.TemplateSubmission {
	var components []waprovider.TemplateComponent

	if vt.HeaderType == models.HeaderTypeText && vt.HeaderText != "" {
		components = append(components, waprovider.TemplateComponent{
			Type:   "HEADER",
			Format: "TEXT",
			Text:   vt.HeaderText,
		})
	}

	body := waprovider.TemplateComponent{
		Type: "BODY",
		Text: vt.BodyText,
	}
	if len(vt.Placeholders) > 0 {
		body.Example = &waprovider.ComponentExample{
			BodyText: [][]string{append([]string(nil), vt.Samples...)},
		}
	}
	components = append(components, body)

	if vt.FooterText != "" {
		components = append(components, waprovider.TemplateComponent{
			Type: "FOOTER",
			Text: vt.FooterText,
		})
	}

	return &waprovider.TemplateSubmission{
		Name:       vt.Name,
		Category:   vt.Category,
		Language:   vt.Language,
		Components: components,
	}
}
