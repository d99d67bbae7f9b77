// Package postgresql provides PostgreSQL persistence for flows and
// conversation execution state.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Postgres driver registration.
	_ "github.com/lib/pq"

	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db               *sql.DB
	logger           *slog.Logger
	flowRepo         *FlowRepository
	conversationRepo *ConversationRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:               database,
		logger:           logger,
		flowRepo:         NewFlowRepository(database, logger),
		conversationRepo: NewConversationRepository(database, logger),
	}, nil
}

// FlowRepository returns the flow repository.
func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

// ConversationRepository returns the conversation repository.
func (p *Persistence) ConversationRepository() persistence.ConversationRepository {
	return p.conversationRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
