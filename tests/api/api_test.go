package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/internal/api"
	"github.com/jetbridge/checkin/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCheckinService struct {
	mock.Mock
}

func (m *mockCheckinService) ScheduleCheckin(ctx context.Context, request *models.ScheduleCheckinRequest) (*models.ScheduleCheckinResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduleCheckinResponse), args.Error(1)
}

func TestScheduleCheckinHandler(t *testing.T) {
	validBody := `{"data": {"confirmation_number": "ABC123", "first_name": "John", "last_name": "Doe"}}`

	tests := []struct {
		name              string
		body              string
		setupMock         func(*mockCheckinService)
		expectedCode      int
		expectedErrorCode string
	}{
		{
			name: "Success",
			body: validBody,
			setupMock: func(m *mockCheckinService) {
				m.On("ScheduleCheckin", mock.Anything, mock.AnythingOfType("*models.ScheduleCheckinRequest")).
					Return(&models.ScheduleCheckinResponse{
						Data: models.ScheduleCheckinResult{
							CheckinAvailableEpoch: []int64{1717183800},
							CheckinBootEpoch:      []int64{1717183500},
						},
					}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:              "Malformed_JSON",
			body:              `{"data":`,
			setupMock:         func(m *mockCheckinService) {},
			expectedCode:      http.StatusUnprocessableEntity,
			expectedErrorCode: "invalid_parameters",
		},
		{
			name:              "Missing_confirmation_number",
			body:              `{"data": {"first_name": "John", "last_name": "Doe"}}`,
			setupMock:         func(m *mockCheckinService) {},
			expectedCode:      http.StatusUnprocessableEntity,
			expectedErrorCode: "invalid_parameters",
		},
		{
			name:              "Empty_name_fields",
			body:              `{"data": {"confirmation_number": "ABC123", "first_name": "", "last_name": ""}}`,
			setupMock:         func(m *mockCheckinService) {},
			expectedCode:      http.StatusUnprocessableEntity,
			expectedErrorCode: "invalid_parameters",
		},
		{
			name: "No_future_legs",
			body: validBody,
			setupMock: func(m *mockCheckinService) {
				m.On("ScheduleCheckin", mock.Anything, mock.AnythingOfType("*models.ScheduleCheckinRequest")).
					Return(nil, models.ErrNoFutureLegs)
			},
			expectedCode:      http.StatusUnprocessableEntity,
			expectedErrorCode: "no_future_legs",
		},
		{
			name: "Internal_error_is_generic",
			body: validBody,
			setupMock: func(m *mockCheckinService) {
				m.On("ScheduleCheckin", mock.Anything, mock.AnythingOfType("*models.ScheduleCheckinRequest")).
					Return(nil, &models.SchedulingError{RuleName: "ABC123-x-1", Op: "register rule", Err: assert.AnError})
			},
			expectedCode:      http.StatusInternalServerError,
			expectedErrorCode: "internal_server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mockCheckinService)
			tt.setupMock(mockService)
			handler := api.ScheduleCheckinHandler(mockService, logger.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/v1/checkin/schedule", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			if tt.expectedErrorCode != "" {
				var errBody struct {
					Error     string `json:"error"`
					ErrorCode string `json:"error_code"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
				assert.Equal(t, tt.expectedErrorCode, errBody.ErrorCode)
				// Internal detail must never leak to the caller.
				assert.NotContains(t, errBody.Error, "register rule")
			}

			mockService.AssertExpectations(t)
			if tt.expectedCode == http.StatusUnprocessableEntity && tt.expectedErrorCode == "invalid_parameters" {
				mockService.AssertNotCalled(t, "ScheduleCheckin", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestScheduleCheckinHandler_Response(t *testing.T) {
	mockService := new(mockCheckinService)
	mockService.On("ScheduleCheckin", mock.Anything, mock.AnythingOfType("*models.ScheduleCheckinRequest")).
		Return(&models.ScheduleCheckinResponse{
			Data: models.ScheduleCheckinResult{
				CheckinAvailableEpoch: []int64{1717183800, 1717765500},
				CheckinBootEpoch:      []int64{1717183500, 1717765200},
			},
		}, nil)
	handler := api.ScheduleCheckinHandler(mockService, logger.NewNop())

	body := `{"data": {"confirmation_number": "ABC123", "first_name": "John", "last_name": "Doe"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/checkin/schedule", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response models.ScheduleCheckinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []int64{1717183800, 1717765500}, response.Data.CheckinAvailableEpoch)
	assert.Equal(t, []int64{1717183500, 1717765200}, response.Data.CheckinBootEpoch)
}
