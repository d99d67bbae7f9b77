package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// FlowRepository stores one JSON file per (flow, version).
type FlowRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewFlowRepository creates a file-backed flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{dir: filepath.Join(root, "flows")}
}

func (r *FlowRepository) path(id string, version int) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s-v%d.json", id, version))
}

// FlowsByOrganization returns the latest version of each flow for an
// organization.
func (r *FlowRepository) FlowsByOrganization(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*models.Flow)

	for _, flow := range all {
		if flow.OrganizationID != organizationID || flow.DeletedAt != nil {
			continue
		}

		current, ok := latest[flow.ID]
		if !ok || flow.Version > current.Version {
			latest[flow.ID] = flow
		}
	}

	flows := make([]*models.Flow, 0, len(latest))
	for _, flow := range latest {
		flows = append(flows, flow)
	}

	sortByCreation(flows)

	return flows, nil
}

// PublishedFlows returns published flows for an organization, oldest first.
func (r *FlowRepository) PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	flows := make([]*models.Flow, 0)

	for _, flow := range all {
		if flow.OrganizationID == organizationID &&
			flow.Status == models.FlowStatusPublished &&
			flow.DeletedAt == nil {
			flows = append(flows, flow)
		}
	}

	sortByCreation(flows)

	return flows, nil
}

// FlowByID returns the latest version of a flow.
func (r *FlowRepository) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	var found *models.Flow

	for _, flow := range all {
		if flow.ID != id || flow.DeletedAt != nil {
			continue
		}

		if found == nil || flow.Version > found.Version {
			found = flow
		}
	}

	if found == nil {
		return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
	}

	return found, nil
}

// FlowVersion returns one pinned version of a flow.
func (r *FlowRepository) FlowVersion(ctx context.Context, id string, version int) (*models.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, err := r.read(r.path(id, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.FlowError{
				Op:      "FlowVersion",
				FlowID:  id,
				Version: version,
				Err:     persistence.ErrFlowVersionNotFound,
			}
		}

		return nil, err
	}

	return flow, nil
}

// SaveFlow writes one flow version file. Republishing the same version of a
// published flow is rejected.
func (r *FlowRepository) SaveFlow(ctx context.Context, flow *models.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.read(r.path(flow.ID, flow.Version))
	if err == nil && existing.Status == models.FlowStatusPublished &&
		flow.Status != models.FlowStatusUnpublished {
		return persistence.NewFlowError("SaveFlow", flow.ID, persistence.ErrFlowImmutable)
	}

	err = os.MkdirAll(r.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	err = os.WriteFile(r.path(flow.ID, flow.Version), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write flow file: %w", err)
	}

	return nil
}

// DeleteFlow soft deletes every version of a flow.
func (r *FlowRepository) DeleteFlow(ctx context.Context, id string) error {
	all, err := r.loadAll()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := false

	for _, flow := range all {
		if flow.ID != id || flow.DeletedAt != nil {
			continue
		}

		now := nowUTC()
		flow.DeletedAt = &now

		data, err := json.MarshalIndent(flow, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal flow: %w", err)
		}

		err = os.WriteFile(r.path(flow.ID, flow.Version), data, 0o644)
		if err != nil {
			return fmt.Errorf("failed to write flow file: %w", err)
		}

		deleted = true
	}

	if !deleted {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}

func (r *FlowRepository) loadAll() ([]*models.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	flows := make([]*models.Flow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		flow, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (r *FlowRepository) read(path string) (*models.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var flow models.Flow

	err = json.Unmarshal(data, &flow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow file %s: %w", path, err)
	}

	return &flow, nil
}

func sortByCreation(flows []*models.Flow) {
	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.Before(flows[j].CreatedAt)
	})
}
