package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// ConversationRepository handles conversation execution state operations. An
// upsert of the whole row is the single logical transaction the executor
// performs per inbound message.
type ConversationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db *sql.DB, logger *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, logger: logger}
}

const conversationColumns = `
	organization_id
  , contact_id
  , active_flow_id
  , active_flow_version
  , current_node_id
  , bindings
  , generation
  , suspended_since
  , delay_until
  , prompt_attempts
  , faulted
  , fault_reason
  , blocked
  , window_expires_at
  , last_inbound_at
  , created_at
  , updated_at
`

// Conversation returns the state for a contact.
func (r *ConversationRepository) Conversation(ctx context.Context, organizationID, contactID string) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE organization_id = $1 AND contact_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, organizationID, contactID)

	conversation, err := r.scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewConversationError(
				"Conversation", organizationID, contactID, persistence.ErrConversationNotFound)
		}

		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return conversation, nil
}

// SaveConversation upserts the full conversation row.
func (r *ConversationRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
	conversation.UpdatedAt = time.Now().UTC()

	bindings, err := json.Marshal(conversation.Bindings)
	if err != nil {
		return fmt.Errorf("failed to marshal bindings: %w", err)
	}

	blocked, err := json.Marshal(conversation.Blocked)
	if err != nil {
		return fmt.Errorf("failed to marshal blocked messages: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (
			organization_id, contact_id,
			active_flow_id, active_flow_version, current_node_id,
			bindings, generation,
			suspended_since, delay_until, prompt_attempts,
			faulted, fault_reason, blocked,
			window_expires_at, last_inbound_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (organization_id, contact_id) DO UPDATE SET
			active_flow_id = EXCLUDED.active_flow_id,
			active_flow_version = EXCLUDED.active_flow_version,
			current_node_id = EXCLUDED.current_node_id,
			bindings = EXCLUDED.bindings,
			generation = EXCLUDED.generation,
			suspended_since = EXCLUDED.suspended_since,
			delay_until = EXCLUDED.delay_until,
			prompt_attempts = EXCLUDED.prompt_attempts,
			faulted = EXCLUDED.faulted,
			fault_reason = EXCLUDED.fault_reason,
			blocked = EXCLUDED.blocked,
			window_expires_at = EXCLUDED.window_expires_at,
			last_inbound_at = EXCLUDED.last_inbound_at,
			updated_at = EXCLUDED.updated_at
	`,
		conversation.OrganizationID, conversation.ContactID,
		nullString(conversation.ActiveFlowID), nullInt(conversation.ActiveFlowVersion),
		nullString(conversation.CurrentNodeID),
		bindings, conversation.Generation,
		conversation.SuspendedSince, conversation.DelayUntil, conversation.PromptAttempts,
		conversation.Faulted, nullString(conversation.FaultReason), blocked,
		conversation.Window.WindowExpiresAt, conversation.Window.LastInboundAt,
		conversation.CreatedAt, conversation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewConversationError(
			"SaveConversation", conversation.OrganizationID, conversation.ContactID, err)
	}

	return nil
}

// DueDelays returns conversations whose delay suspension is due.
func (r *ConversationRepository) DueDelays(ctx context.Context, now time.Time, limit int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE delay_until IS NOT NULL AND delay_until <= $1 AND faulted = FALSE
		ORDER BY delay_until ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due delays: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	conversations := make([]*models.Conversation, 0)

	for rows.Next() {
		conversation, err := r.scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conversations = append(conversations, conversation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

func (r *ConversationRepository) scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conversation models.Conversation
		flowID       sql.NullString
		flowVersion  sql.NullInt64
		nodeID       sql.NullString
		faultReason  sql.NullString
		bindingsJSON []byte
		blockedJSON  []byte
	)

	err := row.Scan(
		&conversation.OrganizationID, &conversation.ContactID,
		&flowID, &flowVersion, &nodeID,
		&bindingsJSON, &conversation.Generation,
		&conversation.SuspendedSince, &conversation.DelayUntil, &conversation.PromptAttempts,
		&conversation.Faulted, &faultReason, &blockedJSON,
		&conversation.Window.WindowExpiresAt, &conversation.Window.LastInboundAt,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conversation.ActiveFlowID = flowID.String
	conversation.ActiveFlowVersion = int(flowVersion.Int64)
	conversation.CurrentNodeID = nodeID.String
	conversation.FaultReason = faultReason.String

	err = json.Unmarshal(bindingsJSON, &conversation.Bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal bindings: %w", err)
	}

	err = json.Unmarshal(blockedJSON, &conversation.Blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocked messages: %w", err)
	}

	return &conversation, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullInt(i int) any {
	if i == 0 {
		return nil
	}

	return i
}
