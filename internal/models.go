package models

import (
	"errors"
	"fmt"
	"time"
)

// Reservation identifies a booking. It is only ever used as a lookup key
// and as invocation payload data.
type Reservation struct {
	ConfirmationNumber string `json:"confirmation_number"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
}

// Leg is one flight segment of an itinerary, with its departure airport
// and the departure date/time in that airport's local clock.
type Leg struct {
	DepartureAirportCode string `json:"departure_airport_code"`
	DepartureDate        string `json:"departure_date"`
	DepartureTime        string `json:"departure_time"`
}

type Itinerary struct {
	Bounds []Leg `json:"bounds"`
}

// TriggerPlan is the derived scheduling decision for one leg:
// when check-in opens, when the trigger must fire, the one-shot cron
// expression encoding the invoke instant in UTC, and the idempotent
// rule name the external schedule entry is keyed on.
type TriggerPlan struct {
	CheckinOpen        time.Time
	Invoke             time.Time
	ScheduleExpression string
	RuleName           string
}

type TriggerStatus string

const (
	TriggerPending TriggerStatus = "PENDING"
	TriggerFired   TriggerStatus = "FIRED"
)

// TriggerRule is a durable one-shot schedule entry.
type TriggerRule struct {
	RuleName           string
	ScheduleExpression string
	FireAt             time.Time
	Status             TriggerStatus
	CreatedAt          time.Time
}

// TriggerTarget associates an invocation target with a rule. A rule owns
// exactly one target.
type TriggerTarget struct {
	RuleName       string
	TargetID       string
	TargetResource string
	Payload        []byte
}

// TriggerPermission authorizes the scheduling backend to invoke the
// target function on behalf of one rule. The target id doubles as the
// statement id, so re-registering the same rule/target pair is idempotent.
type TriggerPermission struct {
	RuleName    string
	StatementID string
	Action      string
	SourceID    string
}

// InvocationPayload is what the downstream check-in handler receives when
// a trigger fires. It carries everything needed to perform the check-in
// without re-deriving timezone logic.
type InvocationPayload struct {
	Reservation           Reservation `json:"reservation"`
	CheckinAvailableEpoch int64       `json:"checkin_available_epoch"`
}

type ScheduleCheckinRequest struct {
	Data ScheduleCheckinData `json:"data" validate:"required"`
}

type ScheduleCheckinData struct {
	ConfirmationNumber string `json:"confirmation_number" validate:"required"`
	FirstName          string `json:"first_name" validate:"required"`
	LastName           string `json:"last_name" validate:"required"`
}

func (r *ScheduleCheckinRequest) Reservation() Reservation {
	return Reservation{
		ConfirmationNumber: r.Data.ConfirmationNumber,
		FirstName:          r.Data.FirstName,
		LastName:           r.Data.LastName,
	}
}

type ScheduleCheckinResponse struct {
	Data ScheduleCheckinResult `json:"data"`
}

// ScheduleCheckinResult lists, in leg order, the check-in-open epoch and
// the trigger-fire epoch for every leg, as whole UTC seconds.
type ScheduleCheckinResult struct {
	CheckinAvailableEpoch []int64 `json:"checkin_available_epoch"`
	CheckinBootEpoch      []int64 `json:"checkin_boot_epoch"`
}

var (
	ErrNoFutureLegs        = errors.New("no future legs found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUnknownAirport      = errors.New("unknown airport code")
)

// LegResolutionError means a leg's local departure time could not be
// turned into an absolute instant. It aborts the whole request: the
// response arrays are positional, so a partial schedule is never valid.
type LegResolutionError struct {
	AirportCode string
	Err         error
}

func (e *LegResolutionError) Error() string {
	return fmt.Sprintf("resolving leg departing %s: %v", e.AirportCode, e.Err)
}

func (e *LegResolutionError) Unwrap() error {
	return e.Err
}

// SchedulingError means one of the gateway calls for a rule failed.
type SchedulingError struct {
	RuleName string
	Op       string
	Err      error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling rule %s: %s: %v", e.RuleName, e.Op, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}
