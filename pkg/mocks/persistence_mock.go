package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zapflow/zapflow/pkg/models"
	"github.com/zapflow/zapflow/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) FlowRepository() persistence.FlowRepository {
	args := m.Called()

	return args.Get(0).(persistence.FlowRepository)
}

func (m *MockPersistence) ConversationRepository() persistence.ConversationRepository {
	args := m.Called()

	return args.Get(0).(persistence.ConversationRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockFlowRepository is a mock implementation of persistence.FlowRepository.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) FlowsByOrganization(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) PublishedFlows(ctx context.Context, organizationID string) ([]*models.Flow, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) FlowVersion(ctx context.Context, id string, version int) (*models.Flow, error) {
	args := m.Called(ctx, id, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) SaveFlow(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowRepository) DeleteFlow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockConversationRepository is a mock implementation of
// persistence.ConversationRepository.
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Conversation(ctx context.Context, organizationID, contactID string) (*models.Conversation, error) {
	args := m.Called(ctx, organizationID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
	args := m.Called(ctx, conversation)

	return args.Error(0)
}

func (m *MockConversationRepository) DueDelays(ctx context.Context, now time.Time, limit int) ([]*models.Conversation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Conversation), args.Error(1)
}
