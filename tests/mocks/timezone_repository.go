package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTimezoneRepository struct {
	mock.Mock
}

func (m *MockTimezoneRepository) GetAirportTimezone(ctx context.Context, airportCode string) (string, error) {
	args := m.Called(ctx, airportCode)
	return args.String(0), args.Error(1)
}
