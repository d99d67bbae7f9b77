// Package protocol defines contracts for the engine's external collaborators.
package protocol

import (
	"context"

	"github.com/zapflow/zapflow/pkg/models"
)

// Dispatcher accepts outbound send requests. The implementation owns the
// provider API calls, retries and delivery-status tracking; the engine only
// hands over a fully gated request.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *models.OutboundMessage) error
}

// CallResult is the outcome of an external HTTP or database call.
type CallResult struct {
	StatusCode int              `json:"status_code,omitempty"`
	Body       map[string]any   `json:"body,omitempty"`
	Rows       []map[string]any `json:"rows,omitempty"`
}

// HTTPExecutor performs api_call node requests. IdempotencyKey is stable per
// (conversation, generation, node) so a step retried after a crash does not
// double-execute the side-effecting call; honoring it is this collaborator's
// contract.
type HTTPExecutor interface {
	Do(ctx context.Context, method, url string, body map[string]any, idempotencyKey string) (*CallResult, error)
}

// QueryExecutor performs database_query node statements under the same
// idempotency contract as HTTPExecutor.
type QueryExecutor interface {
	Query(ctx context.Context, query string, args map[string]any, idempotencyKey string) (*CallResult, error)
}

// ScriptRunner evaluates script node expressions against the bound variables.
type ScriptRunner interface {
	Run(ctx context.Context, source string, variables map[string]any) (any, error)
}

// HandoffRequest transfers a conversation to a human agent queue.
type HandoffRequest struct {
	OrganizationID string         `json:"organization_id"`
	ContactID      string         `json:"contact_id"`
	Queue          string         `json:"queue,omitempty"`
	ContextSummary map[string]any `json:"context_summary,omitempty"`
}

// HumanQueue receives handoff requests. Human-driven resume is an external
// signal, not an inbound message.
type HumanQueue interface {
	Enqueue(ctx context.Context, req HandoffRequest) error
}
