package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zapflow/zapflow/pkg/collaborators"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/locks"
	"github.com/zapflow/zapflow/pkg/mocks"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence/file"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/services"
	"github.com/zapflow/zapflow/pkg/testutil"
	"github.com/zapflow/zapflow/pkg/web"
)

type webFixture struct {
	app         *fiber.App
	persistence *file.Persistence
	eventBus    *mocks.MockEventBus
}

func setupTestApp(t *testing.T) *webFixture {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	eventBus := &mocks.MockEventBus{}
	eventBus.On("GenerateID").Return("evt-test")
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewDefaultRegistry(logger, registry.Collaborators{})
	validate := validator.New(validator.WithRequiredStructEnabled())

	flowService := services.NewFlows(p)
	publishingService := services.NewPublishing(p, flow.NewValidator(reg), eventBus, logger)

	dispatcher := collaborators.NewBusDispatcher(eventBus)
	executor := flow.NewExecutor(reg, p.FlowRepository(), dispatcher, logger)
	engine := services.NewEngine(
		p, nil, executor, flow.NewResolver(logger), eventBus,
		locks.NewMemoryLocker(), flow.ResumeWins, "test-api", logger)

	handlers := web.NewAPIHandlers(flowService, publishingService, engine, p, eventBus, validate, reg)

	app := fiber.New()
	app.Post("/webhook", handlers.PostWebhook)
	app.Get("/node-types", handlers.GetNodeTypes)

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Post("/:id/publish", handlers.PublishFlow)
	f.Post("/:id/unpublish", handlers.UnpublishFlow)

	conversations := app.Group("/organizations/:orgId/conversations")
	conversations.Get("/:contactId", handlers.GetConversation)
	conversations.Post("/:contactId/reset", handlers.ResetConversation)
	conversations.Post("/:contactId/resume", handlers.ResumeConversation)

	return &webFixture{app: app, persistence: p, eventBus: eventBus}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestPostWebhook_AcceptsAndPublishes(t *testing.T) {
	fixture := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhook", map[string]any{
		"organization_id": "org-1",
		"contact_id":      "contact-1",
		"text":            "hello",
	})

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	fixture.eventBus.AssertCalled(t, "Publish",
		mock.Anything, events.InboundTopic, "org-1:contact-1", mock.Anything)
}

func TestPostWebhook_RejectsMissingContact(t *testing.T) {
	fixture := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhook", map[string]any{
		"organization_id": "org-1",
		"text":            "hello",
	})

	resp, err := fixture.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFlowLifecycleOverHTTP(t *testing.T) {
	fixture := setupTestApp(t)

	draft := testutil.LinearFlow()
	createBody := map[string]any{
		"organization_id": draft.OrganizationID,
		"name":            draft.Name,
		"nodes":           draft.Nodes,
		"edges":           draft.Edges,
		"trigger":         draft.Trigger,
	}

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, "/flows/", createBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Flow

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, models.FlowStatusDraft, created.Status)
	require.NotEmpty(t, created.ID)

	resp, err = fixture.app.Test(httptest.NewRequest(
		http.MethodPost, "/flows/"+created.ID+"/publish", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var published models.Flow

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&published))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, models.FlowStatusPublished, published.Status)

	// Publishing the same version again is a conflict.
	resp, err = fixture.app.Test(httptest.NewRequest(
		http.MethodPost, "/flows/"+created.ID+"/publish", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp, err = fixture.app.Test(httptest.NewRequest(
		http.MethodPost, "/flows/"+created.ID+"/unpublish", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp, err = fixture.app.Test(httptest.NewRequest(
		http.MethodDelete, "/flows/"+created.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestGetFlows_RequiresOrganization(t *testing.T) {
	fixture := setupTestApp(t)

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/flows/", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetFlow_NotFound(t *testing.T) {
	fixture := setupTestApp(t)

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/flows/no-such-id", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetConversation_ReturnsWindowVerdict(t *testing.T) {
	fixture := setupTestApp(t)

	conversation := testutil.CreateTestConversation()
	require.NoError(t, fixture.persistence.ConversationRepository().
		SaveConversation(context.Background(), conversation))

	target := "/organizations/" + conversation.OrganizationID +
		"/conversations/" + conversation.ContactID

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Conversation  models.Conversation  `json:"conversation"`
		WindowVerdict models.WindowVerdict `json:"window_verdict"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, conversation.ContactID, body.Conversation.ContactID)
}

func TestGetConversation_NotFound(t *testing.T) {
	fixture := setupTestApp(t)

	resp, err := fixture.app.Test(httptest.NewRequest(
		http.MethodGet, "/organizations/org-x/conversations/nobody", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResetConversation_BumpsGeneration(t *testing.T) {
	fixture := setupTestApp(t)

	conversation := testutil.CreateTestConversation()
	require.NoError(t, fixture.persistence.ConversationRepository().
		SaveConversation(context.Background(), conversation))

	target := "/organizations/" + conversation.OrganizationID +
		"/conversations/" + conversation.ContactID + "/reset"

	resp, err := fixture.app.Test(jsonRequest(t, http.MethodPost, target,
		map[string]any{"requested_by": "operator@example.com"}))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	after, err := fixture.persistence.ConversationRepository().Conversation(
		context.Background(), conversation.OrganizationID, conversation.ContactID)
	require.NoError(t, err)
	assert.Equal(t, conversation.Generation+1, after.Generation)
}

func TestGetNodeTypes_ExposesCatalog(t *testing.T) {
	fixture := setupTestApp(t)

	resp, err := fixture.app.Test(httptest.NewRequest(http.MethodGet, "/node-types", nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		NodeTypes []web.NodeTypeInfo `json:"node_types"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	ids := make([]string, 0, len(body.NodeTypes))
	for _, nodeType := range body.NodeTypes {
		ids = append(ids, nodeType.ID)
	}

	assert.Contains(t, ids, string(models.NodeTypeMessage))
	assert.Contains(t, ids, string(models.NodeTypeQuestion))
	assert.Contains(t, ids, string(models.NodeTypeDelay))
}
