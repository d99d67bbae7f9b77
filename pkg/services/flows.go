package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// Flows manages flow definitions through their draft lifecycle. Published
// versions are immutable; edits always happen on a draft.
type Flows struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewFlows creates the flow management service.
func NewFlows(p persistence.Persistence) *Flows {
	return &Flows{
		persistence: p,
		validate:    validator.New(),
	}
}

// Create stores a new draft flow.
func (s *Flows) Create(ctx context.Context, f *models.Flow) (*models.Flow, error) {
	if f == nil {
		return nil, NewServiceError("flows.create", "invalid", "flow cannot be nil", ErrFlowNil)
	}

	now := time.Now().UTC()

	if f.ID == "" {
		f.ID = uuid.New().String()
	}

	f.Status = models.FlowStatusDraft
	f.Version = 1
	f.CreatedAt = now
	f.UpdatedAt = now

	err := s.validate.Struct(f)
	if err != nil {
		return nil, NewServiceError("flows.create", "validation", "invalid flow", err)
	}

	err = s.persistence.FlowRepository().SaveFlow(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return f, nil
}

// Update replaces the draft definition of a flow. Updating a published
// version is a conflict; callers create a new draft version instead.
func (s *Flows) Update(ctx context.Context, f *models.Flow) (*models.Flow, error) {
	if f == nil {
		return nil, NewServiceError("flows.update", "invalid", "flow cannot be nil", ErrFlowNil)
	}

	current, err := s.persistence.FlowRepository().FlowByID(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	if current.Status == models.FlowStatusPublished {
		// Edits on a published flow open the next draft version.
		f.Version = current.Version + 1
	} else {
		f.Version = current.Version
	}

	f.OrganizationID = current.OrganizationID
	f.Status = models.FlowStatusDraft
	f.CreatedAt = current.CreatedAt
	f.UpdatedAt = time.Now().UTC()

	err = s.validate.Struct(f)
	if err != nil {
		return nil, NewServiceError("flows.update", "validation", "invalid flow", err)
	}

	err = s.persistence.FlowRepository().SaveFlow(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return f, nil
}

// Get returns the latest version of a flow.
func (s *Flows) Get(ctx context.Context, id string) (*models.Flow, error) {
	return s.persistence.FlowRepository().FlowByID(ctx, id)
}

// List returns the organization's flows, latest version of each.
func (s *Flows) List(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	return s.persistence.FlowRepository().FlowsByOrganization(ctx, organizationID)
}

// Delete soft-deletes a flow. Suspended conversations pinned to its versions
// keep running; the resolver just stops offering it.
func (s *Flows) Delete(ctx context.Context, id string) error {
	return s.persistence.FlowRepository().DeleteFlow(ctx, id)
}
