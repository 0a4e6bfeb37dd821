// Package template implements local validation of WhatsApp template
// definitions: name, category and language rules, body length, placeholder
// extraction and sample value resolution. Validation is pure and runs before
// any network call.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

var (
	namePattern        = regexp.MustCompile(`^[a-z0-9_]{3,512}$`)
	languagePattern    = regexp.MustCompile(`^[a-z]{2}_[A-Z]{2}$`)
	placeholderPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)
)

const minBodyRunes = 5

// Definition is the caller-supplied template shape, prior to validation.
type Definition struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Language   string   `json:"language"`
	HeaderType string   `json:"header_type"`
	HeaderText string   `json:"header_text,omitempty"`
	BodyText   string   `json:"body_text"`
	FooterText string   `json:"footer_text,omitempty"`
	Samples    []string `json:"samples,omitempty"`
}

// Validated is a definition that passed every rule, enriched with the
// extracted placeholder indices and the resolved sample values. Samples[i]
// corresponds to Placeholders[i]; the positional mapping follows the sorted
// index order, not first appearance in the body.
type Validated struct {
	Definition
	Placeholders []int
	Samples      []string
}

// ValidationError reports the first rule the definition violated. For sample
// count failures RequiredSamples carries the number of values the caller
// must supply.
type ValidationError struct {
	Field           string
	Reason          string
	RequiredSamples int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template validation: %s: %s", e.Field, e.Reason)
}

// Validate applies the rules in a fixed order so the reported error is
// deterministic: name, category, language, body length, header type, then
// sample counts.
func Validate(def Definition) (*Validated, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.Category = strings.TrimSpace(def.Category)
	def.Language = strings.TrimSpace(def.Language)
	def.HeaderType = strings.TrimSpace(def.HeaderType)

	if !namePattern.MatchString(def.Name) {
		return nil, &ValidationError{Field: "name", Reason: "must match ^[a-z0-9_]{3,512}$"}
	}

	switch def.Category {
	case models.TemplateCategoryMarketing, models.TemplateCategoryUtility, models.TemplateCategoryAuthentication:
	default:
		return nil, &ValidationError{Field: "category", Reason: "must be MARKETING, UTILITY or AUTHENTICATION"}
	}

	if !languagePattern.MatchString(def.Language) {
		return nil, &ValidationError{Field: "language", Reason: "must match xx_XX, e.g. en_US"}
	}

	if utf8.RuneCountInString(def.BodyText) < minBodyRunes {
		return nil, &ValidationError{Field: "body_text", Reason: fmt.Sprintf("must be at least %d characters", minBodyRunes)}
	}

	switch def.HeaderType {
	case "", models.HeaderTypeNone, models.HeaderTypeText:
		if def.HeaderType == "" {
			def.HeaderType = models.HeaderTypeNone
		}
	default:
		return nil, &ValidationError{Field: "header_type", Reason: "must be none or text"}
	}

	placeholders := ExtractPlaceholders(def.BodyText)

	samples, err := resolveSamples(placeholders, def.Samples)
	if err != nil {
		return nil, err
	}

	return &Validated{
		Definition:   def,
		Placeholders: placeholders,
		Samples:      samples,
	}, nil
}

// ExtractPlaceholders scans body text for {{n}} tokens and returns the set
// of distinct indices sorted ascending. Repetition and appearance order in
// the body are irrelevant.
func ExtractPlaceholders(body string) []int {
	matches := placeholderPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(matches))
	var indices []int
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// resolveSamples maps caller supplied sample values onto the sorted
// placeholder indices. An empty samples list is valid and synthesized, a
// partially filled one is rejected with the required count. The asymmetry is
// intentional: tenants may skip samples entirely but must not half-fill
// them.
func resolveSamples(placeholders []int, supplied []string) ([]string, error) {
	if len(placeholders) == 0 {
		return nil, nil
	}

	var nonEmpty []string
	for _, s := range supplied {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(s))
		}
	}

	if len(nonEmpty) == 0 {
		out := make([]string, len(placeholders))
		for i, idx := range placeholders {
			out[i] = "Sample " + strconv.Itoa(idx)
		}
		return out, nil
	}

	if len(nonEmpty) < len(placeholders) {
		return nil, &ValidationError{
			Field:           "samples",
			Reason:          fmt.Sprintf("need %d sample values, got %d", len(placeholders), len(nonEmpty)),
			RequiredSamples: len(placeholders),
		}
	}

	return nonEmpty[:len(placeholders)], nil
}
