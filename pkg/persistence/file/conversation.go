package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// ConversationRepository stores one JSON file per (organization, contact).
type ConversationRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewConversationRepository creates a file-backed conversation repository.
func NewConversationRepository(root string) *ConversationRepository {
	return &ConversationRepository{dir: filepath.Join(root, "conversations")}
}

func (r *ConversationRepository) path(organizationID, contactID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s__%s.json", organizationID, contactID))
}

// Conversation returns the state for a contact.
func (r *ConversationRepository) Conversation(ctx context.Context, organizationID, contactID string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(organizationID, contactID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewConversationError(
				"Conversation", organizationID, contactID, persistence.ErrConversationNotFound)
		}

		return nil, fmt.Errorf("failed to read conversation file: %w", err)
	}

	var conversation models.Conversation

	err = json.Unmarshal(data, &conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	return &conversation, nil
}

// SaveConversation writes the full conversation state.
func (r *ConversationRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation.UpdatedAt = nowUTC()

	err := os.MkdirAll(r.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create conversations directory: %w", err)
	}

	data, err := json.MarshalIndent(conversation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	err = os.WriteFile(r.path(conversation.OrganizationID, conversation.ContactID), data, 0o644)
	if err != nil {
		return persistence.NewConversationError(
			"SaveConversation", conversation.OrganizationID, conversation.ContactID, err)
	}

	return nil
}

// DueDelays scans all conversations for due delay suspensions.
func (r *ConversationRepository) DueDelays(ctx context.Context, now time.Time, limit int) ([]*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	due := make([]*models.Conversation, 0)

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read conversation file: %w", err)
		}

		var conversation models.Conversation

		err = json.Unmarshal(data, &conversation)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
		}

		if conversation.Faulted || conversation.DelayUntil == nil || conversation.DelayUntil.After(now) {
			continue
		}

		due = append(due, &conversation)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].DelayUntil.Before(*due[j].DelayUntil)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
