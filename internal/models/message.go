package models

import "time"

// Supported outbound channels.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Message direction. Inbound capture is handled by a separate sync process,
// so every record written by this service is outbound.
const DirectionOutbound = "outbound"

// Terminal message statuses. The send call is synchronous, so there is no
// pending or in-flight state: the dispatcher assigns exactly one of these
// before the record is persisted.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// OutboundMessage is the durable record of one attempted send. It is created
// by the dispatcher after the provider call returns and never mutated
// afterwards by this service.
type OutboundMessage struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	Channel           string     `json:"channel"`
	Direction         string     `json:"direction"`
	Recipient         string     `json:"recipient"`
	Subject           string     `json:"subject,omitempty"`
	BodyText          string     `json:"body_text,omitempty"`
	BodyHTML          string     `json:"body_html,omitempty"`
	ScheduledAt       *time.Time `json:"scheduled_at,omitempty"`
	Status            string     `json:"status"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// IsSupportedChannel reports whether the supplied tag names one of the three
// outbound channels.
func IsSupportedChannel(channel string) bool {
	switch channel {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	default:
		return false
	}
}
