package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// catalogTTL bounds how stale a worker's view of an organization's published
// flows can get when it misses the publish fanout event.
const catalogTTL = 30 * time.Second

// FlowCatalog is the resolver's read-only view of an organization's published
// flows.
type FlowCatalog interface {
	PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error)
}

// CachedCatalog caches published-flow snapshots per organization. Entries are
// invalidated by the FlowPublished fanout event and expire after a TTL, so a
// publish is visible to every worker within the TTL at the latest.
type CachedCatalog struct {
	repo persistence.FlowRepository

	mu      sync.RWMutex
	entries map[string]catalogEntry
}

type catalogEntry struct {
	flows    []*models.Flow
	loadedAt time.Time
}

// NewCachedCatalog creates a catalog backed by the flow repository.
func NewCachedCatalog(repo persistence.FlowRepository) *CachedCatalog {
	return &CachedCatalog{
		repo:    repo,
		entries: make(map[string]catalogEntry),
	}
}

// PublishedFlows returns the organization's published flows, from cache when
// fresh.
func (c *CachedCatalog) PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	c.mu.RLock()
	entry, ok := c.entries[organizationID]
	c.mu.RUnlock()

	if ok && time.Since(entry.loadedAt) < catalogTTL {
		return entry.flows, nil
	}

	flows, err := c.repo.PublishedFlows(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[organizationID] = catalogEntry{flows: flows, loadedAt: time.Now()}
	c.mu.Unlock()

	return flows, nil
}

// Invalidate drops the cached snapshot for one organization.
func (c *CachedCatalog) Invalidate(organizationID string) {
	c.mu.Lock()
	delete(c.entries, organizationID)
	c.mu.Unlock()
}

// HandleFlowPublished is the event bus handler for publish fanout.
func (c *CachedCatalog) HandleFlowPublished(_ context.Context, event any) error {
	published, ok := event.(*events.FlowPublished)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	c.Invalidate(published.OrganizationID)

	return nil
}
