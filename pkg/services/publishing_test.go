package services_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/mocks"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence/file"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/services"
	"github.com/zapflow/zapflow/pkg/testutil"
)

func newPublishingFixture(t *testing.T) (*services.Publishing, *services.Flows, *file.Persistence) {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	eventBus := &mocks.MockEventBus{}
	eventBus.On("GenerateID").Return("evt-test")
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewDefaultRegistry(logger, registry.Collaborators{})
	validator := flow.NewValidator(reg)

	return services.NewPublishing(p, validator, eventBus, logger), services.NewFlows(p), p
}

func draftFlow() *models.Flow {
	return testutil.LinearFlow(testutil.WithStatus(models.FlowStatusDraft))
}

func TestPublish_MakesDraftExecutable(t *testing.T) {
	publishing, flows, _ := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	published, err := publishing.Publish(ctx, draft.ID)

	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
}

func TestPublish_RejectsInvalidGraph(t *testing.T) {
	publishing, flows, _ := newPublishingFixture(t)
	ctx := context.Background()

	broken := draftFlow()
	broken.Nodes = broken.Nodes[1:] // drop the start node

	draft, err := flows.Create(ctx, broken)
	require.NoError(t, err)

	_, err = publishing.Publish(ctx, draft.ID)

	require.Error(t, err)
	assert.True(t, flow.IsValidationError(err))
}

func TestPublish_RejectsRepublishingPublishedVersion(t *testing.T) {
	publishing, flows, _ := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	_, err = publishing.Publish(ctx, draft.ID)
	require.NoError(t, err)

	_, err = publishing.Publish(ctx, draft.ID)

	assert.ErrorIs(t, err, services.ErrCannotModifyPublished)
}

func TestPublish_NewVersionRetiresPrevious(t *testing.T) {
	publishing, flows, p := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	v1, err := publishing.Publish(ctx, draft.ID)
	require.NoError(t, err)

	// Editing the published flow opens version 2 as a draft.
	edited := testutil.LinearFlow()
	edited.ID = draft.ID
	edited.OrganizationID = draft.OrganizationID

	v2, err := flows.Update(ctx, edited)
	require.NoError(t, err)
	require.Equal(t, v1.Version+1, v2.Version)

	published, err := publishing.Publish(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, published.Version)

	retired, err := p.FlowRepository().FlowVersion(ctx, draft.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusUnpublished, retired.Status)

	// The resolver's working set only sees version 2.
	active, err := p.FlowRepository().PublishedFlows(ctx, draft.OrganizationID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Version)
}

func TestUnpublish_WithdrawsFromResolution(t *testing.T) {
	publishing, flows, p := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	_, err = publishing.Publish(ctx, draft.ID)
	require.NoError(t, err)

	withdrawn, err := publishing.Unpublish(ctx, draft.ID)

	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusUnpublished, withdrawn.Status)

	active, err := p.FlowRepository().PublishedFlows(ctx, draft.OrganizationID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUnpublish_RequiresPublishedFlow(t *testing.T) {
	publishing, flows, _ := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	_, err = publishing.Unpublish(ctx, draft.ID)

	assert.ErrorIs(t, err, services.ErrNotPublished)
}

func TestFlowsCreate_ForcesDraftAndVersionOne(t *testing.T) {
	_, flows, _ := newPublishingFixture(t)

	created, err := flows.Create(context.Background(), testutil.LinearFlow())

	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)
	assert.NotEmpty(t, created.ID)
}

func TestFlowsCreate_ValidatesRequiredFields(t *testing.T) {
	_, flows, _ := newPublishingFixture(t)

	invalid := testutil.LinearFlow()
	invalid.Name = "ab" // below the minimum length

	_, err := flows.Create(context.Background(), invalid)

	assert.Error(t, err)
}

func TestFlowsDelete_KeepsPinnedVersionsReadable(t *testing.T) {
	publishing, flows, p := newPublishingFixture(t)
	ctx := context.Background()

	draft, err := flows.Create(ctx, draftFlow())
	require.NoError(t, err)

	published, err := publishing.Publish(ctx, draft.ID)
	require.NoError(t, err)

	require.NoError(t, flows.Delete(ctx, draft.ID))

	// Gone from the catalog.
	_, err = p.FlowRepository().FlowByID(ctx, draft.ID)
	assert.Error(t, err)

	active, err := p.FlowRepository().PublishedFlows(ctx, draft.OrganizationID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Conversations pinned to the published version can still load it.
	pinned, err := p.FlowRepository().FlowVersion(ctx, draft.ID, published.Version)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusPublished, pinned.Status)
}
