// Package mocks provides testify mocks of the persistence and event bus interfaces.
package mocks

import (
	"context"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows *MockWorkflowRepository
}

// NewMockPersistence returns a MockPersistence whose repository is a fresh
// MockWorkflowRepository.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{Workflows: &MockWorkflowRepository{}}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, ownerID, id string) (*models.WorkflowRecord, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowRepository) List(ctx context.Context, ownerID string) ([]*models.WorkflowSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowSummary), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, ownerID string, changeset *reconcile.Changeset) (*models.WorkflowRecord, error) {
	args := m.Called(ctx, ownerID, changeset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.DashboardStats), args.Error(1)
}
