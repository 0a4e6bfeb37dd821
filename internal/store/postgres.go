package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// PostgresStore implements MessageStore and TemplateStore over database/sql.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore wraps the supplied database handle.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("store: db handle is required")
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

// InsertMessage writes one outbound message record. A missing id or
// timestamp is filled in; the stored record is returned.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.OutboundMessage) (*models.OutboundMessage, error) {
	if msg == nil {
		return nil, errors.New("store: message is required")
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Direction == "" {
		stored.Direction = models.DirectionOutbound
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbound_messages (
			id, tenant_id, channel, direction, recipient, subject,
			body_text, body_html, scheduled_at, status,
			provider_message_id, failure_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		stored.ID, stored.TenantID, stored.Channel, stored.Direction,
		stored.Recipient, nullable(stored.Subject),
		nullable(stored.BodyText), nullable(stored.BodyHTML),
		stored.ScheduledAt, stored.Status,
		nullable(stored.ProviderMessageID), nullable(stored.FailureReason),
		stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert outbound message: %w", err)
	}
	return &stored, nil
}

// UpsertTemplate writes or refreshes the provisional template row keyed on
// (tenant_id, provider_template_id).
func (s *PostgresStore) UpsertTemplate(ctx context.Context, tpl *models.WhatsAppTemplate) (*models.WhatsAppTemplate, error) {
	if tpl == nil {
		return nil, errors.New("store: template is required")
	}
	if tpl.TenantID == "" || tpl.ProviderTemplateID == "" {
		return nil, errors.New("store: tenant id and provider template id are required")
	}

	stored := *tpl
	now := s.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whatsapp_templates (
			tenant_id, provider_template_id, name, category, language,
			header_type, header_text, body_text, footer_text,
			placeholder_count, sample_values, status, review_status,
			raw_payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (tenant_id, provider_template_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			language = EXCLUDED.language,
			header_type = EXCLUDED.header_type,
			header_text = EXCLUDED.header_text,
			body_text = EXCLUDED.body_text,
			footer_text = EXCLUDED.footer_text,
			placeholder_count = EXCLUDED.placeholder_count,
			sample_values = EXCLUDED.sample_values,
			status = EXCLUDED.status,
			review_status = EXCLUDED.review_status,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`,
		stored.TenantID, stored.ProviderTemplateID, stored.Name,
		stored.Category, stored.Language, stored.HeaderType,
		nullable(stored.HeaderText), stored.BodyText, nullable(stored.FooterText),
		stored.PlaceholderCount, encodeSamples(stored.SampleValues),
		stored.Status, stored.ReviewStatus, nullable(stored.RawPayload),
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: upsert whatsapp template: %w", err)
	}
	return &stored, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
