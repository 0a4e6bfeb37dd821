package tenantconf

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// PostgresStore reads tenant service configuration rows from postgres. The
// rows are written by the tenant settings UI; this service never mutates
// them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps the supplied database handle.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("tenantconf: db handle is required")
	}
	return &PostgresStore{db: db}, nil
}

// Get fetches the configuration row for the (tenant, service) pair. Absence
// is reported as (nil, nil).
func (s *PostgresStore) Get(ctx context.Context, tenantID, service string) (*models.ServiceConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, service_name, primary_credential, secondary_credential, settings
		FROM service_configs
		WHERE tenant_id = $1 AND service_name = $2
	`, tenantID, service)

	var cfg models.ServiceConfig
	var secondary sql.NullString
	var rawSettings []byte
	if err := row.Scan(&cfg.TenantID, &cfg.Service, &cfg.PrimaryCredential, &secondary, &rawSettings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query service config: %w", err)
	}

	if secondary.Valid {
		cfg.SecondaryCredential = secondary.String
	}
	if len(rawSettings) > 0 {
		if err := json.Unmarshal(rawSettings, &cfg.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for %s/%s: %w", tenantID, service, err)
		}
	}
	cfg.Active = computeActive(&cfg)
	return &cfg, nil
}

// computeActive derives the active flag from completeness of the fields the
// service requires, mirroring what the settings UI displays.
func computeActive(cfg *models.ServiceConfig) bool {
	switch cfg.Service {
	case models.ServiceSMTP:
		return cfg.Setting("host") != "" && cfg.Setting("username") != "" && cfg.SecondaryCredential != ""
	case models.ServiceWhatsApp:
		return cfg.PrimaryCredential != "" && cfg.Setting("phone_number_id") != ""
	case models.ServiceCompanyPhone:
		return cfg.Setting("number") != ""
	default:
		return cfg.PrimaryCredential != ""
	}
}
