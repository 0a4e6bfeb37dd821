package email

import "time"

// Payload encapsulates one email to be delivered by a provider.
type Payload struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Text      string
	HTML      string
}

// RawResponse captures the low-level provider response for an email send.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}
