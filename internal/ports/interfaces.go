package ports

import (
	"context"

	models "github.com/jetbridge/checkin/internal"
)

type CheckinService interface {
	ScheduleCheckin(ctx context.Context, request *models.ScheduleCheckinRequest) (*models.ScheduleCheckinResponse, error)
}

type ReservationClient interface {
	GetReservation(ctx context.Context, reservation models.Reservation) (*models.Itinerary, error)
}

type TimezoneRepository interface {
	GetAirportTimezone(ctx context.Context, airportCode string) (string, error)
}

// TriggerScheduler registers one-shot scheduled triggers. The three
// registration calls must happen in order for a given rule: the rule has
// to exist before a target can be attached, and the permission references
// the rule's identity.
type TriggerScheduler interface {
	RegisterRule(ctx context.Context, plan models.TriggerPlan) error
	AttachTarget(ctx context.Context, ruleName, targetID string, payload models.InvocationPayload) error
	AuthorizeInvocation(ctx context.Context, ruleName, targetID string) error
	DeleteRule(ctx context.Context, ruleName string) error
}
