package services

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/platform/metrics"
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"
)

// ErrCycleInProgress is returned by Refresh while another cycle runs.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

const (
	StateIdle    = "idle"
	StateRunning = "running"

	eventStart  = "start"
	eventFinish = "finish"
)

// RouteResult is the latest successful computation for one route.
type RouteResult struct {
	Route     domain.Route            `json:"route"`
	Estimate  domain.DurationEstimate `json:"estimate"`
	Departure domain.DepartureInfo    `json:"departure"`
	UpdatedAt time.Time               `json:"updatedAt"`
	CycleID   string                  `json:"cycleId"`
}

// RouteFailure records that a route's last computation failed. Error is a
// user-facing sentence; the cause is only logged. The route's previous
// RouteResult, if any, is kept.
type RouteFailure struct {
	RouteID string    `json:"routeId"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
	CycleID string    `json:"cycleId"`
}

// CycleReport summarizes one refresh cycle.
type CycleReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Routes     int       `json:"routes"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Notified   int       `json:"notified"`
}

// Snapshot is a point-in-time copy of the orchestrator's state.
type Snapshot struct {
	Results   map[string]RouteResult  `json:"results"`
	Failures  map[string]RouteFailure `json:"failures"`
	LastCycle *CycleReport            `json:"lastCycle,omitempty"`
	Running   bool                    `json:"running"`
}

type OrchestratorConfig struct {
	// Interval between scheduled cycles. Default 5m.
	Interval time.Duration
	// NotifyCheckInterval re-evaluates the policy between cycles; 0 disables.
	NotifyCheckInterval time.Duration
	// Concurrency bounds per-route estimator calls. Default 4.
	Concurrency int
	Policy      NotificationPolicy
	// Now is the clock, already in the user's location. Default time.Now.
	Now func() time.Time
}

type firedKey struct {
	routeID string
	arrival int64
}

// Orchestrator periodically recomputes departure times for the current
// user's routes and fires departure alerts.
type Orchestrator struct {
	routes    ports.RouteStore
	identity  ports.Identity
	estimator DurationEstimator
	sink      ports.NotificationSink
	cfg       OrchestratorConfig
	logger    log.Logger

	machine *fsm.FSM
	changed chan struct{}

	// gateMu orders cycle start/finish with the follow-up flag.
	gateMu   sync.Mutex
	followUp bool

	mu       sync.RWMutex
	results  map[string]RouteResult
	failures map[string]RouteFailure
	fired    map[firedKey]time.Time
	last     *CycleReport
}

func NewOrchestrator(
	routes ports.RouteStore,
	identity ports.Identity,
	estimator DurationEstimator,
	sink ports.NotificationSink,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Policy == (NotificationPolicy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	o := &Orchestrator{
		routes:    routes,
		identity:  identity,
		estimator: estimator,
		sink:      sink,
		cfg:       cfg,
		logger:    log.WithName("refresh"),
		changed:   make(chan struct{}, 1),
		results:   make(map[string]RouteResult),
		failures:  make(map[string]RouteFailure),
		fired:     make(map[firedKey]time.Time),
	}

	o.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventFinish, Src: []string{StateRunning}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_" + StateRunning: func(_ context.Context, e *fsm.Event) {
				o.logger.Debug("refresh cycle state", "from", e.Src, "to", e.Dst)
			},
			"enter_" + StateIdle: func(_ context.Context, e *fsm.Event) {
				o.logger.Debug("refresh cycle state", "from", e.Src, "to", e.Dst)
			},
		},
	)

	return o
}

// State returns idle or running.
func (o *Orchestrator) State() string { return o.machine.Current() }

// RoutesChanged requests a cycle soon. It never blocks; signals sent
// while one is pending coalesce.
func (o *Orchestrator) RoutesChanged() {
	select {
	case o.changed <- struct{}{}:
	default:
	}
}

// Refresh runs one cycle now. It returns ErrCycleInProgress when another
// cycle is running; one follow-up cycle is then queued for when that cycle
// finishes. Per-route failures are recorded, not returned.
func (o *Orchestrator) Refresh(ctx context.Context) (CycleReport, error) {
	o.gateMu.Lock()
	if err := o.machine.Event(context.Background(), eventStart); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			o.followUp = true
			o.gateMu.Unlock()
			metrics.RefreshCycles.WithLabelValues("skipped").Inc()
			return CycleReport{}, ErrCycleInProgress
		}
		o.gateMu.Unlock()
		return CycleReport{}, fmt.Errorf("refresh: start cycle: %w", err)
	}
	o.gateMu.Unlock()

	defer func() {
		o.gateMu.Lock()
		if err := o.machine.Event(context.Background(), eventFinish); err != nil {
			o.logger.Error(err, "refresh: finish cycle")
		}
		queued := o.followUp
		o.followUp = false
		o.gateMu.Unlock()

		if queued {
			o.RoutesChanged()
		}
	}()

	return o.cycle(ctx)
}

func (o *Orchestrator) cycle(ctx context.Context) (CycleReport, error) {
	start := time.Now()
	report := CycleReport{ID: uuid.NewString(), StartedAt: o.cfg.Now()}
	ctx = obs.WithCycleID(ctx, report.ID)
	logger := o.logger.WithValues("cycle_id", report.ID)

	defer func() {
		metrics.RefreshCycleDuration.Observe(time.Since(start).Seconds())
	}()

	user, err := o.identity.Current(ctx)
	if err != nil {
		metrics.RefreshCycles.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("refresh: current user: %w", err)
	}

	var routes []*domain.Route
	if user != nil {
		routes, err = o.routes.List(ctx, user.ID)
		if err != nil {
			metrics.RefreshCycles.WithLabelValues("failed").Inc()
			return report, fmt.Errorf("refresh: list routes: %w", err)
		}
	}

	var succeeded, failed, notified atomic.Int32

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)
	for _, r := range routes {
		g.Go(func() error {
			ok, sent := o.refreshRoute(ctx, report.ID, r)
			if ok {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			if sent {
				notified.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	o.prune(routes)

	report.FinishedAt = o.cfg.Now()
	report.Routes = len(routes)
	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())
	report.Notified = int(notified.Load())

	o.mu.Lock()
	last := report
	o.last = &last
	o.mu.Unlock()

	metrics.RefreshCycles.WithLabelValues("completed").Inc()
	logger.Info("refresh cycle finished",
		"routes", report.Routes,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"notified", report.Notified,
		"dur", time.Since(start),
	)

	return report, nil
}

// refreshRoute estimates, computes and maybe notifies for one route. Any
// failure, including a panic, is confined to this route.
func (o *Orchestrator) refreshRoute(ctx context.Context, cycleID string, r *domain.Route) (ok bool, notified bool) {
	defer func() {
		if p := recover(); p != nil {
			o.recordFailure(cycleID, r, fmt.Errorf("panic: %v", p))
			ok, notified = false, false
		}
	}()

	est, err := o.estimator.Estimate(ctx, r.FromLocation, r.ToLocation)
	if err != nil {
		o.recordFailure(cycleID, r, fmt.Errorf("estimate: %w", err))
		return false, false
	}

	now := o.cfg.Now()
	dep, err := domain.ComputeDeparture(r.TargetArrivalTime, est.TravelMinutes(), now)
	if err != nil {
		o.recordFailure(cycleID, r, fmt.Errorf("compute departure: %w", err))
		return false, false
	}

	res := RouteResult{
		Route:     *r,
		Estimate:  est,
		Departure: dep,
		UpdatedAt: now,
		CycleID:   cycleID,
	}

	o.mu.Lock()
	o.results[r.ID] = res
	delete(o.failures, r.ID)
	o.mu.Unlock()

	metrics.RouteRefreshes.WithLabelValues("success").Inc()

	return true, o.maybeNotify(ctx, res, now)
}

// refreshFailedMessage is shown for failures with no user-facing sentence.
const refreshFailedMessage = "Unable to refresh this route. Please try again later."

// failureMessage is the text stored for clients. The raw error only goes
// to the log.
func failureMessage(err error) string {
	if errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrValidation) {
		return domain.UserMessage(err)
	}
	return refreshFailedMessage
}

func (o *Orchestrator) recordFailure(cycleID string, r *domain.Route, err error) {
	metrics.RouteRefreshes.WithLabelValues("failed").Inc()
	o.logger.Error(err, "route refresh failed", "cycle_id", cycleID, "route_id", r.ID, "route", r.Name)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[r.ID] = RouteFailure{
		RouteID: r.ID,
		Error:   failureMessage(err),
		At:      o.cfg.Now(),
		CycleID: cycleID,
	}
}

// maybeNotify delivers the departure alert for res when it is due and has
// not already been delivered for this arrival.
func (o *Orchestrator) maybeNotify(ctx context.Context, res RouteResult, now time.Time) bool {
	if !res.Route.NotificationsEnabled || !o.cfg.Policy.ShouldNotify(res.Departure.DepartureAt, now) {
		return false
	}

	key := firedKey{routeID: res.Route.ID, arrival: res.Departure.ArrivalAt.Unix()}

	o.mu.Lock()
	if _, done := o.fired[key]; done {
		o.mu.Unlock()
		return false
	}
	if state := o.sink.PermissionState(); state != domain.PermissionGranted {
		o.mu.Unlock()
		metrics.Notifications.WithLabelValues("skipped").Inc()
		o.logger.Warn("departure alert skipped, notification permission not granted",
			"route_id", res.Route.ID, "permission", state)
		return false
	}
	o.fired[key] = res.Departure.ArrivalAt
	o.mu.Unlock()

	if err := o.sink.Deliver(ctx, DepartureNotification(&res.Route, res.Estimate)); err != nil {
		// Not delivered, so a later check inside the window may retry.
		o.mu.Lock()
		delete(o.fired, key)
		o.mu.Unlock()

		metrics.Notifications.WithLabelValues("failed").Inc()
		o.logger.Error(err, "departure alert failed", "route_id", res.Route.ID)
		return false
	}

	metrics.Notifications.WithLabelValues("delivered").Inc()
	o.logger.Info("departure alert delivered",
		"route_id", res.Route.ID,
		"route", res.Route.Name,
		"departure", res.Departure.DepartureTimeText,
	)
	return true
}

// CheckNotifications evaluates the policy against stored results without
// re-estimating and returns how many alerts were delivered. Routes are
// re-read first: deleted routes are skipped, as are routes whose locations
// or arrival time changed since their result was computed, and the stored
// notification flag wins over the cached one.
func (o *Orchestrator) CheckNotifications(ctx context.Context) int {
	current, err := o.currentRoutes(ctx)
	if err != nil {
		o.logger.Error(err, "notification check skipped")
		return 0
	}

	o.mu.RLock()
	results := make([]RouteResult, 0, len(o.results))
	for _, r := range o.results {
		results = append(results, r)
	}
	o.mu.RUnlock()

	now := o.cfg.Now()
	n := 0
	for _, res := range results {
		stored, ok := current[res.Route.ID]
		if !ok || !sameTrip(&res.Route, stored) {
			continue
		}
		res.Route.Name = stored.Name
		res.Route.NotificationsEnabled = stored.NotificationsEnabled
		if o.maybeNotify(ctx, res, now) {
			n++
		}
	}
	return n
}

func (o *Orchestrator) currentRoutes(ctx context.Context) (map[string]*domain.Route, error) {
	user, err := o.identity.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	routes, err := o.routes.List(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	byID := make(map[string]*domain.Route, len(routes))
	for _, r := range routes {
		byID[r.ID] = r
	}
	return byID, nil
}

func sameTrip(a, b *domain.Route) bool {
	return a.FromLocation == b.FromLocation &&
		a.ToLocation == b.ToLocation &&
		a.TargetArrivalTime == b.TargetArrivalTime
}

// prune drops state for routes no longer tracked and fired markers for
// arrivals more than a day old.
func (o *Orchestrator) prune(tracked []*domain.Route) {
	ids := make(map[string]struct{}, len(tracked))
	for _, r := range tracked {
		ids[r.ID] = struct{}{}
	}

	cutoff := o.cfg.Now().Add(-24 * time.Hour)

	o.mu.Lock()
	defer o.mu.Unlock()

	for id := range o.results {
		if _, ok := ids[id]; !ok {
			delete(o.results, id)
		}
	}
	for id := range o.failures {
		if _, ok := ids[id]; !ok {
			delete(o.failures, id)
		}
	}
	for k, arrival := range o.fired {
		if _, ok := ids[k.routeID]; !ok || arrival.Before(cutoff) {
			delete(o.fired, k)
		}
	}
}

// Snapshot returns a copy of the current results, failures and last
// cycle report.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := Snapshot{
		Results:  make(map[string]RouteResult, len(o.results)),
		Failures: make(map[string]RouteFailure, len(o.failures)),
		Running:  o.machine.Is(StateRunning),
	}
	for k, v := range o.results {
		s.Results[k] = v
	}
	for k, v := range o.failures {
		s.Failures[k] = v
	}
	if o.last != nil {
		last := *o.last
		s.LastCycle = &last
	}
	return s
}

// Run performs an initial cycle, then cycles on the interval and on route
// changes until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("refresh loop starting",
		"interval", o.cfg.Interval,
		"notify_check_interval", o.cfg.NotifyCheckInterval,
		"concurrency", o.cfg.Concurrency,
	)

	o.runScheduled(ctx, "initial")

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	var check <-chan time.Time
	if o.cfg.NotifyCheckInterval > 0 {
		checkTicker := time.NewTicker(o.cfg.NotifyCheckInterval)
		defer checkTicker.Stop()
		check = checkTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
			o.runScheduled(ctx, "interval")
		case <-o.changed:
			o.runScheduled(ctx, "routes_changed")
		case <-check:
			o.CheckNotifications(ctx)
		}
	}
}

func (o *Orchestrator) runScheduled(ctx context.Context, reason string) {
	_, err := o.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		o.logger.Debug("refresh cycle deferred until the running one finishes", "reason", reason)
	case ctx.Err() != nil:
	default:
		o.logger.Error(err, "refresh cycle failed", "reason", reason)
	}
}
