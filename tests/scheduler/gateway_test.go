package scheduler_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/internal/scheduler"
	"github.com/jetbridge/checkin/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRuleStore struct {
	mock.Mock
}

func (m *mockRuleStore) UpsertRule(ctx context.Context, rule models.TriggerRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *mockRuleStore) UpsertTarget(ctx context.Context, target models.TriggerTarget) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *mockRuleStore) UpsertPermission(ctx context.Context, permission models.TriggerPermission) error {
	args := m.Called(ctx, permission)
	return args.Error(0)
}

func (m *mockRuleStore) DeleteRule(ctx context.Context, ruleName string) error {
	args := m.Called(ctx, ruleName)
	return args.Error(0)
}

var gatewayConfig = scheduler.Config{
	Region:       "us-east-1",
	AccountID:    "000000000000",
	FunctionName: "checkin-handler",
}

func TestRegisterRule(t *testing.T) {
	store := new(mockRuleStore)
	gw := scheduler.NewGateway(store, gatewayConfig, logger.NewNop())

	plan := models.TriggerPlan{
		CheckinOpen:        time.Date(2024, 5, 31, 19, 30, 0, 0, time.UTC),
		Invoke:             time.Date(2024, 5, 31, 19, 25, 0, 0, time.UTC),
		ScheduleExpression: "25 19 31 5 ? 2024",
		RuleName:           "ABC123-6cea57c2d4c7-1717183500",
	}

	store.On("UpsertRule", mock.Anything, mock.MatchedBy(func(rule models.TriggerRule) bool {
		return rule.RuleName == plan.RuleName &&
			rule.ScheduleExpression == "cron(25 19 31 5 ? 2024)" &&
			rule.FireAt.Equal(plan.Invoke) &&
			rule.Status == models.TriggerPending
	})).Return(nil)

	require.NoError(t, gw.RegisterRule(context.Background(), plan))
	store.AssertExpectations(t)
}

func TestAttachTarget(t *testing.T) {
	store := new(mockRuleStore)
	gw := scheduler.NewGateway(store, gatewayConfig, logger.NewNop())

	payload := models.InvocationPayload{
		Reservation: models.Reservation{
			ConfirmationNumber: "ABC123",
			FirstName:          "John",
			LastName:           "Doe",
		},
		CheckinAvailableEpoch: 1717183800,
	}

	var stored models.TriggerTarget
	store.On("UpsertTarget", mock.Anything, mock.AnythingOfType("models.TriggerTarget")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(models.TriggerTarget)
		}).Return(nil)

	err := gw.AttachTarget(context.Background(), "rule-1", "target-1", payload)

	require.NoError(t, err)
	assert.Equal(t, "rule-1", stored.RuleName)
	assert.Equal(t, "target-1", stored.TargetID)
	assert.Equal(t, "trigger:us-east-1:000000000000:function/checkin-handler", stored.TargetResource)

	var decoded models.InvocationPayload
	require.NoError(t, json.Unmarshal(stored.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestAuthorizeInvocation(t *testing.T) {
	store := new(mockRuleStore)
	gw := scheduler.NewGateway(store, gatewayConfig, logger.NewNop())

	store.On("UpsertPermission", mock.Anything, models.TriggerPermission{
		RuleName:    "rule-1",
		StatementID: "target-1",
		Action:      "trigger:InvokeFunction",
		SourceID:    "trigger:us-east-1:000000000000:rule/rule-1",
	}).Return(nil)

	require.NoError(t, gw.AuthorizeInvocation(context.Background(), "rule-1", "target-1"))
	store.AssertExpectations(t)
}

func TestRegisterRuleStoreError(t *testing.T) {
	store := new(mockRuleStore)
	gw := scheduler.NewGateway(store, gatewayConfig, logger.NewNop())

	store.On("UpsertRule", mock.Anything, mock.AnythingOfType("models.TriggerRule")).
		Return(assert.AnError)

	err := gw.RegisterRule(context.Background(), models.TriggerPlan{RuleName: "rule-1"})

	assert.Error(t, err)
}
