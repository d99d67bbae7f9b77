// Package persistence provides the data storage abstraction for flows and
// conversation execution state.
package persistence

import (
	"context"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
)

// FlowRepository stores flow definitions. Published versions are immutable;
// saving a published flow again is a conflict, not an update.
type FlowRepository interface {
	// FlowsByOrganization returns all non-deleted flows for an organization,
	// most recent version of each.
	FlowsByOrganization(ctx context.Context, organizationID string) ([]*models.Flow, error)

	// PublishedFlows returns the published flows for an organization, oldest
	// first. This is the resolver's working set.
	PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error)

	// FlowByID returns the latest version of a flow.
	FlowByID(ctx context.Context, id string) (*models.Flow, error)

	// FlowVersion returns one pinned, immutable version of a flow. In-flight
	// executions load their graph through this and never observe republishes.
	FlowVersion(ctx context.Context, id string, version int) (*models.Flow, error)

	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
}

// ConversationRepository stores per-(organization, contact) execution state.
// Conversation and window state persist as a single row so one logical
// transaction covers each inbound message.
type ConversationRepository interface {
	// Conversation returns the state for a contact, or ErrConversationNotFound.
	Conversation(ctx context.Context, organizationID, contactID string) (*models.Conversation, error)

	SaveConversation(ctx context.Context, conversation *models.Conversation) error

	// DueDelays returns conversations whose delay suspension is due at the
	// given instant, up to limit rows. Used by the timer sweeper.
	DueDelays(ctx context.Context, now time.Time, limit int) ([]*models.Conversation, error)
}

type Persistence interface {
	FlowRepository() FlowRepository
	ConversationRepository() ConversationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
