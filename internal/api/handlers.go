package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/dispatch"
	"github.com/ajayykmr/crm-dispatch-go/internal/providers/common"
	"github.com/ajayykmr/crm-dispatch-go/internal/provision"
	"github.com/ajayykmr/crm-dispatch-go/internal/template"
)

// Handlers bundles the HTTP endpoints exposed to the rest of the CRM.
type Handlers struct {
	dispatcher  *dispatch.Dispatcher
	provisioner *provision.Provisioner
	logger      zerolog.Logger
}

// NewHandlers constructs the endpoint set.
func NewHandlers(dispatcher *dispatch.Dispatcher, provisioner *provision.Provisioner, logger zerolog.Logger) (*Handlers, error) {
	if dispatcher == nil {
		return nil, errors.New("api: dispatcher dependency is required")
	}
	if provisioner == nil {
		return nil, errors.New("api: provisioner dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Handlers{dispatcher: dispatcher, provisioner: provisioner, logger: logger}, nil
}

type errorResponse struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	Field           string `json:"field,omitempty"`
	RequiredSamples int    `json:"required_samples,omitempty"`
	ProviderStatus  int    `json:"provider_status,omitempty"`
	ProviderBody    string `json:"provider_body,omitempty"`
}

// CreateTemplate handles POST /v1/templates: validate locally, submit to the
// Cloud API and return the provisional draft record.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no tenant in context", "unauthorized")
		return
	}

	var def template.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "bad_request")
		return
	}

	validated, err := template.Validate(def)
	if err != nil {
		var verr *template.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:           verr.Reason,
				Code:            "validation",
				Field:           verr.Field,
				RequiredSamples: verr.RequiredSamples,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	stored, err := h.provisioner.Submit(r.Context(), tenant, validated)
	if err != nil {
		switch {
		case errors.Is(err, provision.ErrWhatsAppNotConfigured), errors.Is(err, provision.ErrWABANotConfigured):
			writeError(w, http.StatusBadRequest, err.Error(), "not_configured")
		default:
			var rerr *common.RemoteError
			if errors.As(err, &rerr) {
				writeJSON(w, http.StatusBadGateway, errorResponse{
					Error:          "template rejected by provider",
					Code:           "remote",
					ProviderStatus: rerr.StatusCode,
					ProviderBody:   rerr.Body,
				})
				return
			}
			h.logger.Error().Str("tenant_id", tenant).Err(err).Msg("template submission failed unexpectedly")
			writeError(w, http.StatusInternalServerError, "internal error", "internal")
		}
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

type dispatchRequest struct {
	Channel     string     `json:"channel"`
	To          string     `json:"to"`
	Subject     string     `json:"subject,omitempty"`
	BodyText    string     `json:"body_text,omitempty"`
	BodyHTML    string     `json:"body_html,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// DispatchMessage handles POST /v1/messages. Provider failures still return
// 200 with a failed outcome; only caller errors map to 4xx.
func (h *Handlers) DispatchMessage(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no tenant in context", "unauthorized")
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "bad_request")
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "recipient is required", "bad_request")
		return
	}

	outcome, err := h.dispatcher.Dispatch(r.Context(), tenant, req.Channel, &dispatch.MessageInput{
		To:          req.To,
		Subject:     req.Subject,
		BodyText:    req.BodyText,
		BodyHTML:    req.BodyHTML,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrUnsupportedChannel) {
			writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
			return
		}
		h.logger.Error().Str("tenant_id", tenant).Err(err).Msg("dispatch failed unexpectedly")
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
