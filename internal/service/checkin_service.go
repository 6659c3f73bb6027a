package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/internal/ports"
	"github.com/jetbridge/checkin/internal/schedule"
	"github.com/jetbridge/checkin/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const rollbackTimeout = 10 * time.Second

type checkinService struct {
	reservations ports.ReservationClient
	timezones    ports.TimezoneRepository
	scheduler    ports.TriggerScheduler
	log          logger.Logger
}

func NewCheckinService(reservations ports.ReservationClient, timezones ports.TimezoneRepository,
	scheduler ports.TriggerScheduler, log logger.Logger) *checkinService {
	return &checkinService{
		reservations: reservations,
		timezones:    timezones,
		scheduler:    scheduler,
		log:          log,
	}
}

// ScheduleCheckin resolves every leg of the reservation to an absolute
// departure instant, plans one trigger per leg and registers all of them.
// Either every leg gets a registered trigger, or the request fails and
// nothing is reported as scheduled.
func (s *checkinService) ScheduleCheckin(ctx context.Context, request *models.ScheduleCheckinRequest) (*models.ScheduleCheckinResponse, error) {
	reservation := request.Reservation()

	itinerary, err := s.reservations.GetReservation(ctx, reservation)
	if err != nil {
		return nil, fmt.Errorf("fetching reservation: %w", err)
	}

	if len(itinerary.Bounds) == 0 {
		return nil, models.ErrNoFutureLegs
	}

	departures, err := s.resolveLegs(ctx, itinerary.Bounds)
	if err != nil {
		return nil, err
	}

	plans := schedule.PlanTriggers(reservation, departures)

	if err := s.registerAll(ctx, reservation, plans); err != nil {
		return nil, err
	}

	response := &models.ScheduleCheckinResponse{
		Data: models.ScheduleCheckinResult{
			CheckinAvailableEpoch: make([]int64, len(plans)),
			CheckinBootEpoch:      make([]int64, len(plans)),
		},
	}
	for i, plan := range plans {
		response.Data.CheckinAvailableEpoch[i] = plan.CheckinOpen.Unix()
		response.Data.CheckinBootEpoch[i] = plan.Invoke.Unix()
	}
	return response, nil
}

// resolveLegs turns each leg into a departure instant, in itinerary
// order. Any unresolvable leg fails the whole request: the response
// arrays are aligned to legs, so partial resolution is never returned.
func (s *checkinService) resolveLegs(ctx context.Context, legs []models.Leg) ([]time.Time, error) {
	departures := make([]time.Time, len(legs))
	for i, leg := range legs {
		zoneName, err := s.timezones.GetAirportTimezone(ctx, leg.DepartureAirportCode)
		if err != nil {
			return nil, &models.LegResolutionError{AirportCode: leg.DepartureAirportCode, Err: err}
		}

		departure, err := schedule.ResolveDeparture(leg, zoneName)
		if err != nil {
			return nil, &models.LegResolutionError{AirportCode: leg.DepartureAirportCode, Err: err}
		}

		s.log.Debug("resolved departure",
			"airport_code", leg.DepartureAirportCode,
			"departure", departure.UTC().Format(time.RFC3339))
		departures[i] = departure
	}
	return departures, nil
}

// registerAll fans registration out across legs; legs are independent,
// only the three gateway calls within one leg need to stay ordered. On
// any failure the rules already registered in this request are rolled
// back best-effort before the error is surfaced.
func (s *checkinService) registerAll(ctx context.Context, reservation models.Reservation, plans []models.TriggerPlan) error {
	var mu sync.Mutex
	registered := make([]string, 0, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	for _, plan := range plans {
		plan := plan
		g.Go(func() error {
			if err := s.scheduler.RegisterRule(gctx, plan); err != nil {
				return &models.SchedulingError{RuleName: plan.RuleName, Op: "register rule", Err: err}
			}
			mu.Lock()
			registered = append(registered, plan.RuleName)
			mu.Unlock()

			payload := models.InvocationPayload{
				Reservation:           reservation,
				CheckinAvailableEpoch: plan.CheckinOpen.Unix(),
			}
			targetID := uuid.NewString()

			if err := s.scheduler.AttachTarget(gctx, plan.RuleName, targetID, payload); err != nil {
				return &models.SchedulingError{RuleName: plan.RuleName, Op: "attach target", Err: err}
			}
			if err := s.scheduler.AuthorizeInvocation(gctx, plan.RuleName, targetID); err != nil {
				return &models.SchedulingError{RuleName: plan.RuleName, Op: "authorize invocation", Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.rollback(registered)
		return err
	}
	return nil
}

// rollback deletes rules registered within a failed request. Best
// effort: failures are logged, the caller still sees the original error.
func (s *checkinService) rollback(ruleNames []string) {
	if len(ruleNames) == 0 {
		return
	}

	// The request context may already be canceled.
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()

	for _, ruleName := range ruleNames {
		if err := s.scheduler.DeleteRule(ctx, ruleName); err != nil {
			s.log.Error("rolling back trigger rule", "rule_name", ruleName, "error", err)
		}
	}
}
