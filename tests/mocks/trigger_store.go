package mocks

import (
	"context"
	"time"

	models "github.com/jetbridge/checkin/internal"
	"github.com/stretchr/testify/mock"
)

type MockTriggerStore struct {
	mock.Mock
}

func (m *MockTriggerStore) AcquireDue(ctx context.Context, now time.Time, lease time.Duration) (*models.TriggerRule, error) {
	args := m.Called(ctx, now, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TriggerRule), args.Error(1)
}

func (m *MockTriggerStore) GetTarget(ctx context.Context, ruleName string) (*models.TriggerTarget, error) {
	args := m.Called(ctx, ruleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TriggerTarget), args.Error(1)
}

func (m *MockTriggerStore) HasPermission(ctx context.Context, ruleName, statementID string) (bool, error) {
	args := m.Called(ctx, ruleName, statementID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTriggerStore) MarkFired(ctx context.Context, ruleName string, firedAt time.Time) error {
	args := m.Called(ctx, ruleName, firedAt)
	return args.Error(0)
}

func (m *MockTriggerStore) PurgeFired(ctx context.Context, firedBefore time.Time) (int64, error) {
	args := m.Called(ctx, firedBefore)
	return args.Get(0).(int64), args.Error(1)
}
