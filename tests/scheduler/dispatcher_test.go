package scheduler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/internal/scheduler"
	"github.com/jetbridge/checkin/pkg/logger"
	"github.com/jetbridge/checkin/pkg/metrics"
	"github.com/jetbridge/checkin/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// promauto registers in the default registry, so the package shares one
// Metrics instance across tests.
var testMetrics = metrics.NewMetrics("dispatcher_test")

var testConfig = scheduler.DispatcherConfig{
	TargetURL:      "http://localhost:5001/v1/checkin/execute",
	PollInterval:   time.Second,
	LeaseDuration:  30 * time.Second,
	FiredRetention: 7 * 24 * time.Hour,
}

// capturingClient records invocations and answers with a fixed status.
type capturingClient struct {
	mu     sync.Mutex
	status int
	bodies []string
}

func (c *capturingClient) Do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.mu.Unlock()
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (c *capturingClient) invocations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...)
}

func testRule() *models.TriggerRule {
	return &models.TriggerRule{
		RuleName:           "ABC123-6cea57c2d4c7-1717183500",
		ScheduleExpression: "cron(25 19 31 5 ? 2024)",
		FireAt:             time.Date(2024, 5, 31, 19, 25, 0, 0, time.UTC),
		Status:             models.TriggerPending,
	}
}

func testTarget(payload models.InvocationPayload) *models.TriggerTarget {
	body, _ := json.Marshal(payload)
	return &models.TriggerTarget{
		RuleName:       "ABC123-6cea57c2d4c7-1717183500",
		TargetID:       "11111111-2222-3333-4444-555555555555",
		TargetResource: "trigger:us-east-1:000000000000:function/checkin-handler",
		Payload:        body,
	}
}

func TestDispatcherFiresDueTrigger(t *testing.T) {
	store := new(mocks.MockTriggerStore)
	httpClient := &capturingClient{status: http.StatusOK}
	mockClock := clock.NewMock()

	payload := models.InvocationPayload{
		Reservation: models.Reservation{
			ConfirmationNumber: "ABC123",
			FirstName:          "John",
			LastName:           "Doe",
		},
		CheckinAvailableEpoch: 1717183800,
	}
	rule := testRule()
	target := testTarget(payload)

	fired := make(chan struct{})
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(rule, nil).Once()
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(nil, nil)
	store.On("GetTarget", mock.Anything, rule.RuleName).Return(target, nil)
	store.On("HasPermission", mock.Anything, rule.RuleName, target.TargetID).Return(true, nil)
	store.On("MarkFired", mock.Anything, rule.RuleName, mock.Anything).
		Run(func(mock.Arguments) { close(fired) }).Return(nil)
	store.On("PurgeFired", mock.Anything, mock.Anything).Return(int64(0), nil)

	d := scheduler.NewDispatcher(store, testConfig, logger.NewNop(), testMetrics,
		scheduler.WithClock(mockClock),
		scheduler.WithDispatcherHTTPClient(httpClient))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// Let Run set up its ticker before advancing the mock clock.
	time.Sleep(10 * time.Millisecond)
	mockClock.Add(testConfig.PollInterval)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger was not fired")
	}

	invocations := httpClient.invocations()
	require.Len(t, invocations, 1)

	var delivered models.InvocationPayload
	require.NoError(t, json.Unmarshal([]byte(invocations[0]), &delivered))
	assert.Equal(t, payload, delivered)

	store.AssertCalled(t, "MarkFired", mock.Anything, rule.RuleName, mock.Anything)
}

func TestDispatcherLeavesRulePendingWhenInvocationFails(t *testing.T) {
	store := new(mocks.MockTriggerStore)
	httpClient := &capturingClient{status: http.StatusBadGateway}
	mockClock := clock.NewMock()

	rule := testRule()
	target := testTarget(models.InvocationPayload{})

	attempted := make(chan struct{})
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(rule, nil).Once()
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(nil, nil)
	store.On("GetTarget", mock.Anything, rule.RuleName).Return(target, nil)
	store.On("HasPermission", mock.Anything, rule.RuleName, target.TargetID).Return(true, nil)
	store.On("PurgeFired", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case <-attempted:
			default:
				close(attempted)
			}
		}).Return(int64(0), nil)

	d := scheduler.NewDispatcher(store, testConfig, logger.NewNop(), testMetrics,
		scheduler.WithClock(mockClock),
		scheduler.WithDispatcherHTTPClient(httpClient))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	time.Sleep(10 * time.Millisecond)
	mockClock.Add(testConfig.PollInterval)

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never polled")
	}

	// The rule stays leased so the next expiry retries it; it is never
	// marked fired on a failed invocation.
	store.AssertNotCalled(t, "MarkFired", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, httpClient.invocations(), 1)
}

func TestDispatcherMarksUnauthorizedRuleInert(t *testing.T) {
	store := new(mocks.MockTriggerStore)
	httpClient := &capturingClient{status: http.StatusOK}
	mockClock := clock.NewMock()

	rule := testRule()
	target := testTarget(models.InvocationPayload{})

	marked := make(chan struct{})
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(rule, nil).Once()
	store.On("AcquireDue", mock.Anything, mock.Anything, testConfig.LeaseDuration).
		Return(nil, nil)
	store.On("GetTarget", mock.Anything, rule.RuleName).Return(target, nil)
	store.On("HasPermission", mock.Anything, rule.RuleName, target.TargetID).Return(false, nil)
	store.On("MarkFired", mock.Anything, rule.RuleName, mock.Anything).
		Run(func(mock.Arguments) { close(marked) }).Return(nil)
	store.On("PurgeFired", mock.Anything, mock.Anything).Return(int64(0), nil)

	d := scheduler.NewDispatcher(store, testConfig, logger.NewNop(), testMetrics,
		scheduler.WithClock(mockClock),
		scheduler.WithDispatcherHTTPClient(httpClient))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	time.Sleep(10 * time.Millisecond)
	mockClock.Add(testConfig.PollInterval)

	select {
	case <-marked:
	case <-time.After(2 * time.Second):
		t.Fatal("rule was not marked inert")
	}

	// No invocation without permission.
	assert.Empty(t, httpClient.invocations())
}
