package whatsapp

import "time"

// RawResponse captures the low-level Cloud API response.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// TemplateComponent is one element of the components array submitted to the
// template-management endpoint.
type TemplateComponent struct {
	Type    string            `json:"type"`
	Format  string            `json:"format,omitempty"`
	Text    string            `json:"text,omitempty"`
	Example *ComponentExample `json:"example,omitempty"`
}

// ComponentExample nests the ordered sample values Meta requires when a body
// contains placeholders.
type ComponentExample struct {
	BodyText [][]string `json:"body_text,omitempty"`
}

// TemplateSubmission is the payload POSTed to the WABA's message_templates
// endpoint.
type TemplateSubmission struct {
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	Language   string              `json:"language"`
	Components []TemplateComponent `json:"components"`
}

// TemplateResult reports what the remote endpoint assigned to an accepted
// submission.
type TemplateResult struct {
	RemoteID   string
	Status     string
	Code       int
	Body       string
	RawPayload string
}
