package mocks

import (
	"context"

	models "github.com/jetbridge/checkin/internal"
	"github.com/stretchr/testify/mock"
)

type MockTriggerScheduler struct {
	mock.Mock
}

func (m *MockTriggerScheduler) RegisterRule(ctx context.Context, plan models.TriggerPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockTriggerScheduler) AttachTarget(ctx context.Context, ruleName, targetID string, payload models.InvocationPayload) error {
	args := m.Called(ctx, ruleName, targetID, payload)
	return args.Error(0)
}

func (m *MockTriggerScheduler) AuthorizeInvocation(ctx context.Context, ruleName, targetID string) error {
	args := m.Called(ctx, ruleName, targetID)
	return args.Error(0)
}

func (m *MockTriggerScheduler) DeleteRule(ctx context.Context, ruleName string) error {
	args := m.Called(ctx, ruleName)
	return args.Error(0)
}
