// Package schedule derives trigger instants from flight departures.
// Everything in here is pure: identical inputs always produce identical
// plans, which is what makes re-running the pipeline for the same
// reservation idempotent end-to-end.
package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	models "github.com/jetbridge/checkin/internal"
)

const (
	// Local departure times come in as "2024-06-01 14:30".
	departureLayout = "2006-01-02 15:04"

	// Check-in opens 24 hours before departure. The trigger fires 5
	// minutes earlier to absorb cold starts and processing latency.
	checkinLead     = 24 * time.Hour
	invokeHeadStart = 5 * time.Minute

	nameDigestLen = 12
)

// ResolveDeparture turns a leg's local departure date/time into an
// absolute instant in the given IANA zone.
func ResolveDeparture(leg models.Leg, zoneName string) (time.Time, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading zone %q: %w", zoneName, err)
	}

	takeoff := fmt.Sprintf("%s %s", leg.DepartureDate, leg.DepartureTime)
	departure, err := time.ParseInLocation(departureLayout, takeoff, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing departure %q: %w", takeoff, err)
	}

	return departure, nil
}

// PlanTriggers maps departure instants to trigger plans, one per leg,
// order preserved.
func PlanTriggers(reservation models.Reservation, departures []time.Time) []models.TriggerPlan {
	plans := make([]models.TriggerPlan, len(departures))
	for i, departure := range departures {
		checkinOpen := departure.Add(-checkinLead)
		invoke := checkinOpen.Add(-invokeHeadStart)
		plans[i] = models.TriggerPlan{
			CheckinOpen:        checkinOpen,
			Invoke:             invoke,
			ScheduleExpression: CronExpressionUTC(invoke),
			RuleName:           RuleName(reservation, invoke),
		}
	}
	return plans
}

// CronExpressionUTC encodes t as a one-shot cron expression in UTC:
// minute, hour, day-of-month, month, day-of-week, year. The explicit
// year makes the schedule fire once and never recur; day-of-week is "?"
// because an explicit date is already given.
func CronExpressionUTC(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%d %d %d %d ? %d",
		utc.Minute(), utc.Hour(), utc.Day(), int(utc.Month()), utc.Year())
}

// RuleName builds the idempotency key for one invoke instant. Repeated
// requests for the same reservation and computed trigger time converge
// on the same name, so re-registering overwrites rather than duplicates.
// Name fields are digested so the key never carries characters that are
// illegal in external rule names.
func RuleName(reservation models.Reservation, invoke time.Time) string {
	return fmt.Sprintf("%s-%s-%d",
		reservation.ConfirmationNumber,
		nameDigest(reservation.FirstName, reservation.LastName),
		invoke.Unix())
}

func nameDigest(firstName, lastName string) string {
	sum := sha256.Sum256([]byte(firstName + "|" + lastName))
	return hex.EncodeToString(sum[:])[:nameDigestLen]
}
