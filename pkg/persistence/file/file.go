// Package file provides file-based persistence for local development and
// tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/zapflow/zapflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on top of JSON
// files.
type Persistence struct {
	root             string
	flowRepo         *FlowRepository
	conversationRepo *ConversationRepository
}

// NewPersistence creates a new file persistence layer rooted at the given
// directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:             cleanRoot,
		flowRepo:         NewFlowRepository(cleanRoot),
		conversationRepo: NewConversationRepository(cleanRoot),
	}
}

// FlowRepository returns the flow repository.
func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

// ConversationRepository returns the conversation repository.
func (fp *Persistence) ConversationRepository() persistence.ConversationRepository {
	return fp.conversationRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
