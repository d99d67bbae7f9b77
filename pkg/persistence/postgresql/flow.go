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

// FlowRepository handles flow-definition database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

const flowColumns = `
	id
  , version
  , organization_id
  , name
  , status
  , trigger_config
  , nodes
  , edges
  , created_at
  , updated_at
  , published_at
  , deleted_at
`

// FlowsByOrganization returns the latest version of every non-deleted flow
// for an organization.
func (r *FlowRepository) FlowsByOrganization(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	query := `
		SELECT DISTINCT ON (id) ` + flowColumns + `
		FROM flows
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY id, version DESC
	`

	return r.queryFlows(ctx, query, organizationID)
}

// PublishedFlows returns the published flows for an organization, oldest
// first so keyword tie-breaking by creation order is a stable iteration.
func (r *FlowRepository) PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE organization_id = $1 AND status = 'published' AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	return r.queryFlows(ctx, query, organizationID)
}

// FlowByID returns the latest version of a flow.
func (r *FlowRepository) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE id = $1 AND deleted_at IS NULL
		ORDER BY version DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	flow, err := r.scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// FlowVersion returns one pinned version of a flow.
func (r *FlowRepository) FlowVersion(ctx context.Context, id string, version int) (*models.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE id = $1 AND version = $2
	`

	row := r.db.QueryRowContext(ctx, query, id, version)

	flow, err := r.scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.FlowError{
				Op:      "FlowVersion",
				FlowID:  id,
				Version: version,
				Err:     persistence.ErrFlowVersionNotFound,
			}
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	return flow, nil
}

// SaveFlow inserts a new flow version or updates a draft in place. Published
// versions are immutable.
func (r *FlowRepository) SaveFlow(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()
	flow.UpdatedAt = now

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	var status string

	err := r.db.QueryRowContext(ctx,
		"SELECT status FROM flows WHERE id = $1 AND version = $2",
		flow.ID, flow.Version,
	).Scan(&status)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return r.insertFlow(ctx, flow)
	case err != nil:
		return fmt.Errorf("failed to check existing flow version: %w", err)
	case status == string(models.FlowStatusPublished) && flow.Status != models.FlowStatusUnpublished:
		return persistence.NewFlowError("SaveFlow", flow.ID, persistence.ErrFlowImmutable)
	default:
		return r.updateFlow(ctx, flow)
	}
}

// DeleteFlow soft deletes all versions of a flow.
func (r *FlowRepository) DeleteFlow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE flows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}

func (r *FlowRepository) insertFlow(ctx context.Context, flow *models.Flow) error {
	trigger, nodes, edges, err := marshalGraph(flow)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO flows (
			id, version, organization_id, name, status,
			trigger_config, nodes, edges,
			created_at, updated_at, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		flow.ID, flow.Version, flow.OrganizationID, flow.Name, flow.Status,
		trigger, nodes, edges,
		flow.CreatedAt, flow.UpdatedAt, flow.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flow: %w", err)
	}

	return nil
}

func (r *FlowRepository) updateFlow(ctx context.Context, flow *models.Flow) error {
	trigger, nodes, edges, err := marshalGraph(flow)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE flows SET
			name = $3, status = $4,
			trigger_config = $5, nodes = $6, edges = $7,
			updated_at = $8, published_at = $9
		WHERE id = $1 AND version = $2
	`,
		flow.ID, flow.Version,
		flow.Name, flow.Status,
		trigger, nodes, edges,
		flow.UpdatedAt, flow.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update flow: %w", err)
	}

	return nil
}

func marshalGraph(flow *models.Flow) ([]byte, []byte, []byte, error) {
	trigger, err := json.Marshal(flow.Trigger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	nodes, err := json.Marshal(flow.Nodes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edges, err := json.Marshal(flow.Edges)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	return trigger, nodes, edges, nil
}

func (r *FlowRepository) queryFlows(ctx context.Context, query string, args ...any) ([]*models.Flow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := r.scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *FlowRepository) scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow            models.Flow
		triggerJSON     []byte
		nodesJSON       []byte
		edgesJSON       []byte
	)

	err := row.Scan(
		&flow.ID, &flow.Version, &flow.OrganizationID, &flow.Name, &flow.Status,
		&triggerJSON, &nodesJSON, &edgesJSON,
		&flow.CreatedAt, &flow.UpdatedAt, &flow.PublishedAt, &flow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(triggerJSON, &flow.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	err = json.Unmarshal(nodesJSON, &flow.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	err = json.Unmarshal(edgesJSON, &flow.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	return &flow, nil
}
