package store

import (
	"context"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// MessageStore persists the durable record of every dispatch attempt,
// successful or not. Insert-only: records are never mutated by this service.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.OutboundMessage) (*models.OutboundMessage, error)
}

// TemplateStore persists provisional template rows. Upsert is keyed on
// (tenant, provider_template_id) so resubmitting a name+language updates the
// existing row instead of duplicating it.
type TemplateStore interface {
	UpsertTemplate(ctx context.Context, tpl *models.WhatsAppTemplate) (*models.WhatsAppTemplate, error)
}
