package services

import (
	"commute-eta-service/internal/adapters/traveltime"
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/ports"
	"context"
	"errors"
	"math/rand/v2"
	"testing"
)

type failingProvider struct{ err error }

func (f failingProvider) TravelTime(context.Context, string, string) (ports.TravelTime, error) {
	return ports.TravelTime{}, f.err
}

func TestEstimatorLive(t *testing.T) {
	provider := traveltime.NewStaticProvider().Set("Home", "Office", ports.TravelTime{
		DistanceMeters:           16093,
		DurationSeconds:          1500,
		DurationInTrafficSeconds: 1800,
		StartAddress:             "1 Home Rd",
		EndAddress:               "2 Office Pl",
	})
	e := NewEstimator(provider, rand.New(rand.NewPCG(1, 2)))

	est, err := e.Estimate(context.Background(), "Home", "Office")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Synthetic() || est.Source != domain.SourceLive {
		t.Fatalf("source = %q, want live", est.Source)
	}
	if est.DurationInTrafficText != "30 min" || est.DurationText != "25 min" || est.DistanceText != "10.0 mi" {
		t.Fatalf("unexpected texts: %+v", est)
	}
	if est.TravelMinutes() != 30 {
		t.Fatalf("travel minutes = %v, want 30", est.TravelMinutes())
	}
}

func TestEstimatorLiveWithoutTrafficUsesDuration(t *testing.T) {
	provider := traveltime.NewStaticProvider().Set("a", "b", ports.TravelTime{DurationSeconds: 600})
	est, err := NewEstimator(provider, nil).Estimate(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.DurationInTrafficSeconds != 600 {
		t.Fatalf("traffic = %d, want 600", est.DurationInTrafficSeconds)
	}
}

func TestEstimatorFallsBackOnProviderFailure(t *testing.T) {
	providers := map[string]ports.TravelTimeProvider{
		"error":    failingProvider{err: errors.New("connection refused")},
		"no route": traveltime.NewStaticProvider(),
		"nil":      nil,
	}

	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			e := NewEstimator(p, rand.New(rand.NewPCG(7, 11)))
			est, err := e.Estimate(context.Background(), "Home", "Office")
			if err != nil {
				t.Fatalf("estimator returned error: %v", err)
			}
			if !est.Synthetic() {
				t.Fatalf("source = %q, want synthetic", est.Source)
			}
			if est.StartAddress != "Home" || est.EndAddress != "Office" {
				t.Fatalf("addresses = %q/%q", est.StartAddress, est.EndAddress)
			}
		})
	}
}

func TestSyntheticEstimateBounds(t *testing.T) {
	e := NewEstimator(nil, rand.New(rand.NewPCG(42, 42)))

	for i := 0; i < 1000; i++ {
		est, err := e.Estimate(context.Background(), "a", "b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if est.DurationSeconds < 15*60 || est.DurationSeconds >= 60*60 {
			t.Fatalf("duration %d outside [900, 3600)", est.DurationSeconds)
		}
		if est.DurationInTrafficSeconds < est.DurationSeconds ||
			float64(est.DurationInTrafficSeconds) > 1.5*float64(est.DurationSeconds) {
			t.Fatalf("traffic %d outside [%d, 1.5x]", est.DurationInTrafficSeconds, est.DurationSeconds)
		}
		// Half a mile per base minute.
		if est.DistanceMeters < 12067 || est.DistanceMeters >= 48270 {
			t.Fatalf("distance %d outside [12067, 48270)", est.DistanceMeters)
		}
		if est.DurationText == "" || est.DurationInTrafficText == "" || est.DistanceText == "" {
			t.Fatalf("missing text: %+v", est)
		}
	}
}

func TestSyntheticEstimateIsDeterministicForSeed(t *testing.T) {
	a := NewEstimator(nil, rand.New(rand.NewPCG(3, 4)))
	b := NewEstimator(nil, rand.New(rand.NewPCG(3, 4)))

	for i := 0; i < 5; i++ {
		ea, _ := a.Estimate(context.Background(), "a", "b")
		eb, _ := b.Estimate(context.Background(), "a", "b")
		if ea != eb {
			t.Fatalf("estimates differ for same seed: %+v vs %+v", ea, eb)
		}
	}
}

func TestEstimatorReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEstimator(failingProvider{err: context.Canceled}, nil)
	if _, err := e.Estimate(ctx, "a", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
