package traveltime

import (
	"commute-eta-service/internal/ports"
	"context"
	"fmt"
)

// StaticProvider answers from a fixed table of origin/destination pairs.
// Keys are compared after CacheKey folding. Unknown pairs fail with
// ErrNoRoute.
type StaticProvider struct {
	times map[[2]string]ports.TravelTime
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{times: make(map[[2]string]ports.TravelTime)}
}

// Set registers the answer for origin -> destination. Not safe to call
// concurrently with TravelTime.
func (s *StaticProvider) Set(origin, destination string, tt ports.TravelTime) *StaticProvider {
	s.times[[2]string{CacheKey(origin), CacheKey(destination)}] = tt
	return s
}

func (s *StaticProvider) TravelTime(ctx context.Context, origin, destination string) (ports.TravelTime, error) {
	if err := ctx.Err(); err != nil {
		return ports.TravelTime{}, err
	}
	if normalize(origin) == "" || normalize(destination) == "" {
		return ports.TravelTime{}, ErrEmptyLocation
	}

	tt, ok := s.times[[2]string{CacheKey(origin), CacheKey(destination)}]
	if !ok {
		return ports.TravelTime{}, fmt.Errorf("static travel time %q -> %q: %w", origin, destination, ErrNoRoute)
	}
	return tt, nil
}
