package mocks

import (
	"context"

	models "github.com/jetbridge/checkin/internal"
	"github.com/stretchr/testify/mock"
)

type MockReservationClient struct {
	mock.Mock
}

func (m *MockReservationClient) GetReservation(ctx context.Context, reservation models.Reservation) (*models.Itinerary, error) {
	args := m.Called(ctx, reservation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Itinerary), args.Error(1)
}
