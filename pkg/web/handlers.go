// Package web provides the HTTP surface: webhook ingestion, flow management
// and conversation operations.
package web

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/registry"
	"github.com/zapflow/zapflow/pkg/services"
	"github.com/zapflow/zapflow/pkg/window"
)

type APIHandlers struct {
	flowService       *services.Flows
	publishingService *services.Publishing
	engine            *services.Engine
	persistence       persistence.Persistence
	eventBus          eventbus.EventBus
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	flowService *services.Flows,
	publishingService *services.Publishing,
	engine *services.Engine,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		flowService:       flowService,
		publishingService: publishingService,
		engine:            engine,
		persistence:       p,
		eventBus:          eventBus,
		validator:         validate,
		registry:          reg,
	}
}

// PostWebhook accepts one inbound message and places it on the bus. The
// partition key keeps all messages of a conversation in order; processing
// happens in the engine worker.
func (h *APIHandlers) PostWebhook(c fiber.Ctx) error {
	var req WebhookRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid webhook payload: "+err.Error())
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	kind := models.MessageKind(req.Kind)
	if kind == "" {
		kind = models.MessageKindText
	}

	event := events.InboundReceived{
		BaseEvent: events.BaseEvent{
			ID:             h.eventBus.GenerateID(),
			Type:           events.InboundReceivedEvent,
			Timestamp:      receivedAt,
			OrganizationID: req.OrganizationID,
			ContactID:      req.ContactID,
		},
		Message: models.InboundMessage{
			OrganizationID: req.OrganizationID,
			ContactID:      req.ContactID,
			Text:           req.Text,
			Kind:           kind,
			ReceivedAt:     receivedAt,
		},
	}

	err := h.eventBus.Publish(c.Context(), events.InboundTopic, event.ConversationKey(), event)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id is required")
	}

	flows, err := h.flowService.List(c.Context(), organizationID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"flows": flows, "total_count": len(flows)})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	definition, err := h.flowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid flow: "+err.Error())
	}

	definition, err := h.flowService.Create(c.Context(), &models.Flow{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Nodes:          req.Nodes,
		Edges:          req.Edges,
		Trigger:        req.Trigger,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(definition)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid flow: "+err.Error())
	}

	definition, err := h.flowService.Update(c.Context(), &models.Flow{
		ID:      id,
		Name:    req.Name,
		Nodes:   req.Nodes,
		Edges:   req.Edges,
		Trigger: req.Trigger,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	definition, err := h.publishingService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) UnpublishFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	definition, err := h.publishingService.Unpublish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

// GetConversation returns a conversation's execution state plus the window
// verdict an outbound send would get right now.
func (h *APIHandlers) GetConversation(c fiber.Ctx) error {
	organizationID := c.Params("orgId")
	contactID := c.Params("contactId")

	conversation, err := h.persistence.ConversationRepository().Conversation(
		c.Context(), organizationID, contactID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"conversation":   conversation,
		"window_verdict": window.Evaluate(conversation.Window, time.Now().UTC()),
	})
}

// ResetConversation is the operator escape hatch for stuck or faulted
// conversations.
func (h *APIHandlers) ResetConversation(c fiber.Ctx) error {
	organizationID := c.Params("orgId")
	contactID := c.Params("contactId")

	var req ResetConversationRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	err := h.engine.ResetConversation(c.Context(), organizationID, contactID, req.RequestedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ResumeConversation releases a conversation back to the flow after a human
// handoff.
func (h *APIHandlers) ResumeConversation(c fiber.Ctx) error {
	organizationID := c.Params("orgId")
	contactID := c.Params("contactId")

	err := h.engine.ResumeFromHandoff(c.Context(), organizationID, contactID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetNodeTypes exposes the registered node catalog for the flow editor.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	factories := h.registry.Factories()
	catalog := make([]NodeTypeInfo, 0, len(factories))

	for _, factory := range factories {
		catalog = append(catalog, NodeTypeInfo{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"node_types": catalog})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "persistence unavailable",
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
