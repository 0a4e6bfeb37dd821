package models

import "time"

// WhatsApp template categories accepted by the Cloud API.
const (
	TemplateCategoryMarketing      = "MARKETING"
	TemplateCategoryUtility        = "UTILITY"
	TemplateCategoryAuthentication = "AUTHENTICATION"
)

// Local template lifecycle statuses. Only TemplateStatusDraft is ever written
// by this service; the remaining transitions belong to the external template
// synchronization job.
const (
	TemplateStatusDraft    = "draft"
	TemplateStatusPending  = "pending"
	TemplateStatusApproved = "approved"
	TemplateStatusRejected = "rejected"
)

// ReviewStatusPending is the review state recorded for a freshly submitted
// template, mirroring the vocabulary Meta reports before a decision.
const ReviewStatusPending = "PENDING"

// Template header kinds supported by the validator.
const (
	HeaderTypeNone = "none"
	HeaderTypeText = "text"
)

// WhatsAppTemplate is the provisional local copy of a template registered
// with the WhatsApp template-management endpoint.
type WhatsAppTemplate struct {
	TenantID string `json:"tenant_id"`
	// ProviderTemplateID is the composite name:language identifier, the
	// natural key used for reconciliation. Unique per tenant.
	ProviderTemplateID string    `json:"provider_template_id"`
	Name               string    `json:"name"`
	Category           string    `json:"category"`
	Language           string    `json:"language"`
	HeaderType         string    `json:"header_type"`
	HeaderText         string    `json:"header_text,omitempty"`
	BodyText           string    `json:"body_text"`
	FooterText         string    `json:"footer_text,omitempty"`
	PlaceholderCount   int       `json:"placeholder_count"`
	SampleValues       []string  `json:"sample_values,omitempty"`
	Status             string    `json:"status"`
	ReviewStatus       string    `json:"review_status"`
	// RawPayload preserves the exact JSON submitted to the remote endpoint
	// for audit and debugging.
	RawPayload string    `json:"raw_payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
