package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/pkg/logger"
	"github.com/jetbridge/checkin/pkg/metrics"
)

// TriggerStore is what the dispatcher needs from the trigger repository.
type TriggerStore interface {
	AcquireDue(ctx context.Context, now time.Time, lease time.Duration) (*models.TriggerRule, error)
	GetTarget(ctx context.Context, ruleName string) (*models.TriggerTarget, error)
	HasPermission(ctx context.Context, ruleName, statementID string) (bool, error)
	MarkFired(ctx context.Context, ruleName string, firedAt time.Time) error
	PurgeFired(ctx context.Context, firedBefore time.Time) (int64, error)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type DispatcherConfig struct {
	// TargetURL is where the check-in execution handler listens.
	TargetURL string
	// PollInterval is how often due rules are looked for.
	PollInterval time.Duration
	// LeaseDuration bounds how long a crashed dispatcher can hold a rule.
	LeaseDuration time.Duration
	// FiredRetention is how long fired rules are kept before the reaper
	// deletes them.
	FiredRetention time.Duration
}

// Dispatcher polls the trigger store and fires due one-shot rules by
// invoking the target handler with the stored payload. A fired rule is
// marked FIRED and never fires again; fired rules past retention are
// reaped so the rule namespace stays bounded.
type Dispatcher struct {
	store      TriggerStore
	httpClient HTTPClient
	clock      clock.Clock
	log        logger.Logger
	metrics    *metrics.Metrics
	cfg        DispatcherConfig
}

type DispatcherOption func(*Dispatcher)

func WithClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

func WithDispatcherHTTPClient(httpClient HTTPClient) DispatcherOption {
	return func(d *Dispatcher) {
		d.httpClient = httpClient
	}
}

func NewDispatcher(store TriggerStore, cfg DispatcherConfig, log logger.Logger, m *metrics.Metrics, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clock:      clock.New(),
		log:        log,
		metrics:    m,
		cfg:        cfg,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run blocks until ctx is canceled. It should be called in a background
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := d.clock.Ticker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchDue(ctx)
			d.reap(ctx)
		}
	}
}

// dispatchDue drains everything currently due, one leased rule at a time.
func (d *Dispatcher) dispatchDue(ctx context.Context) {
	for {
		rule, err := d.store.AcquireDue(ctx, d.clock.Now().UTC(), d.cfg.LeaseDuration)
		if err != nil {
			d.log.Error("acquiring due trigger", "error", err)
			d.metrics.ErrorsTotal.WithLabelValues("acquire").Inc()
			return
		}
		if rule == nil {
			return
		}
		d.fire(ctx, rule)
	}
}

func (d *Dispatcher) fire(ctx context.Context, rule *models.TriggerRule) {
	log := d.log.With("rule_name", rule.RuleName)

	target, err := d.store.GetTarget(ctx, rule.RuleName)
	if err != nil {
		log.Error("loading trigger target", "error", err)
		d.metrics.ErrorsTotal.WithLabelValues("target").Inc()
		return
	}

	authorized, err := d.store.HasPermission(ctx, rule.RuleName, target.TargetID)
	if err != nil {
		log.Error("checking invoke permission", "error", err)
		d.metrics.ErrorsTotal.WithLabelValues("permission").Inc()
		return
	}
	if !authorized {
		// Registration never completed for this rule. Mark it fired so
		// it goes inert instead of being re-leased forever.
		log.Error("trigger has no invoke permission, marking inert")
		d.metrics.ErrorsTotal.WithLabelValues("unauthorized").Inc()
		d.markFired(ctx, rule.RuleName, log)
		return
	}

	if err := d.invoke(ctx, target); err != nil {
		// Leave the rule leased; the lease expires and the next poll
		// retries the invocation.
		log.Error("invoking check-in handler", "error", err)
		d.metrics.ErrorsTotal.WithLabelValues("invoke").Inc()
		return
	}

	d.markFired(ctx, rule.RuleName, log)
	d.metrics.TriggersFired.Inc()
	log.Info("fired check-in trigger", "fire_at", rule.FireAt)
}

func (d *Dispatcher) invoke(ctx context.Context, target *models.TriggerTarget) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.TargetURL, bytes.NewReader(target.Payload))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("check-in handler returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) markFired(ctx context.Context, ruleName string, log logger.Logger) {
	if err := d.store.MarkFired(ctx, ruleName, d.clock.Now().UTC()); err != nil {
		log.Error("marking trigger fired", "error", err)
		d.metrics.ErrorsTotal.WithLabelValues("mark_fired").Inc()
	}
}

func (d *Dispatcher) reap(ctx context.Context) {
	cutoff := d.clock.Now().UTC().Add(-d.cfg.FiredRetention)
	purged, err := d.store.PurgeFired(ctx, cutoff)
	if err != nil {
		d.log.Error("purging fired triggers", "error", err)
		d.metrics.ErrorsTotal.WithLabelValues("purge").Inc()
		return
	}
	if purged > 0 {
		d.metrics.TriggersPurged.Add(float64(purged))
		d.log.Debug("purged fired triggers", "count", purged)
	}
}
