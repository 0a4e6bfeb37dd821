// Package dispatch contains the channel senders and the facade that routes
// an outbound message to the tenant's configured provider, normalizes the
// result and persists the attempt.
package dispatch

import (
	"context"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// Result is the normalized outcome of one provider call. Senders never
// return errors: every failure path, from missing configuration to a
// provider rejection, is captured here with Status set to failed.
type Result struct {
	Status            string
	ProviderMessageID string
	FailureReason     string
}

// Sender is the shared contract of the three channel senders.
type Sender interface {
	Send(ctx context.Context, tenantID string, msg *models.OutboundMessage) Result
}

func sent(providerMessageID string) Result {
	return Result{Status: models.StatusSent, ProviderMessageID: providerMessageID}
}

func failed(reason string) Result {
	return Result{Status: models.StatusFailed, FailureReason: reason}
}
