package services

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/platform/metrics"
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Synthetic estimate parameters: a base drive of 15 to 60 minutes, a
// traffic multiplier of 1.0 to 1.5 and half a mile per minute.
const (
	syntheticMinMinutes    = 15
	syntheticSpanMinutes   = 45
	syntheticMaxSlowdown   = 0.5
	syntheticMilesPerMin   = 0.5
	syntheticMetersPerMile = 1609
)

// DurationEstimator produces a travel time estimate for a route.
type DurationEstimator interface {
	Estimate(ctx context.Context, origin, destination string) (domain.DurationEstimate, error)
}

// Estimator asks the configured provider for a live travel time and falls
// back to a synthetic estimate whenever the provider cannot answer. A nil
// provider means no provider is configured.
type Estimator struct {
	provider ports.TravelTimeProvider

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEstimator builds an Estimator. rng drives synthetic estimates; nil
// seeds one from the clock.
func NewEstimator(provider ports.TravelTimeProvider, rng *rand.Rand) *Estimator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Estimator{provider: provider, rng: rng}
}

// Estimate returns a live or synthetic estimate. The only error is the
// caller's context ending.
func (e *Estimator) Estimate(ctx context.Context, origin, destination string) (_ domain.DurationEstimate, err error) {
	defer obs.Time(ctx, "estimator.Estimate")(&err)

	if err := ctx.Err(); err != nil {
		return domain.DurationEstimate{}, err
	}

	if e.provider == nil {
		log.Warn("no travel time provider configured, using synthetic estimate",
			"cycle_id", obs.CycleID(ctx), "origin", origin, "destination", destination)
		return e.synthetic(origin, destination), nil
	}

	tt, err := e.provider.TravelTime(ctx, origin, destination)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.DurationEstimate{}, ctxErr
		}
		log.Warn("travel time provider failed, using synthetic estimate",
			"cycle_id", obs.CycleID(ctx), "origin", origin, "destination", destination, "err", err)
		return e.synthetic(origin, destination), nil
	}

	metrics.Estimates.WithLabelValues(string(domain.SourceLive)).Inc()
	return liveEstimate(tt), nil
}

func liveEstimate(tt ports.TravelTime) domain.DurationEstimate {
	traffic := tt.DurationInTrafficSeconds
	if traffic <= 0 {
		traffic = tt.DurationSeconds
	}

	return domain.DurationEstimate{
		DurationSeconds:          tt.DurationSeconds,
		DurationText:             domain.FormatDuration(tt.DurationSeconds),
		DurationInTrafficSeconds: traffic,
		DurationInTrafficText:    domain.FormatDuration(traffic),
		DistanceMeters:           tt.DistanceMeters,
		DistanceText:             domain.FormatDistance(tt.DistanceMeters),
		StartAddress:             tt.StartAddress,
		EndAddress:               tt.EndAddress,
		Source:                   domain.SourceLive,
	}
}

func (e *Estimator) synthetic(origin, destination string) domain.DurationEstimate {
	e.mu.Lock()
	base := syntheticMinMinutes + e.rng.Float64()*syntheticSpanMinutes
	slowdown := 1 + e.rng.Float64()*syntheticMaxSlowdown
	e.mu.Unlock()

	duration := int(math.Floor(base * 60))
	traffic := int(math.Floor(float64(duration) * slowdown))
	distance := int(math.Floor(base * syntheticMilesPerMin * syntheticMetersPerMile))

	metrics.Estimates.WithLabelValues(string(domain.SourceSynthetic)).Inc()

	return domain.DurationEstimate{
		DurationSeconds:          duration,
		DurationText:             domain.FormatDuration(duration),
		DurationInTrafficSeconds: traffic,
		DurationInTrafficText:    domain.FormatDuration(traffic),
		DistanceMeters:           distance,
		DistanceText:             domain.FormatDistance(distance),
		StartAddress:             origin,
		EndAddress:               destination,
		Source:                   domain.SourceSynthetic,
	}
}
