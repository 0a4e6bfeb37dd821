package models

// Logical service names a tenant can configure. Each maps to at most one
// ServiceConfig row per tenant.
const (
	ServiceResendEmail  = "resend_email"
	ServiceSMTP         = "smtp"
	ServiceFast2SMS     = "fast2sms"
	ServiceWhatsApp     = "whatsapp"
	ServiceCompanyPhone = "company_phone"
)

// ServiceConfig is one tenant's stored credentials and settings for a single
// logical service. Rows are written by the tenant settings UI and are
// read-only to this service.
type ServiceConfig struct {
	TenantID string `json:"tenant_id"`
	Service  string `json:"service_name"`
	// PrimaryCredential is the main secret for the service, e.g. the Resend
	// or Fast2SMS API key, the WhatsApp access token, or the SMTP username.
	PrimaryCredential string `json:"primary_credential"`
	// SecondaryCredential carries the second secret where one exists, e.g.
	// the SMTP password.
	SecondaryCredential string `json:"secondary_credential,omitempty"`
	// Settings holds service specific non-secret fields such as the SMTP
	// host/port or the WhatsApp phone-number-id and WABA id.
	Settings map[string]string `json:"settings,omitempty"`
	// Active is computed from completeness of the required fields, not set
	// directly by the tenant.
	Active bool `json:"active"`
}

// Setting returns the named settings entry or the empty string.
func (c *ServiceConfig) Setting(key string) string {
	if c == nil || c.Settings == nil {
		return ""
	}
	return c.Settings[key]
}
