package ports

import (
	"commute-eta-service/internal/domain"
	"context"
)

// Cache of provider answers keyed by normalized origin and destination.
// Implementations expire entries themselves; a miss returns ok=false.
type TravelTimeCache interface {
	Get(ctx context.Context, origin string, destination string) (_ TravelTime, ok bool, err error)
	Put(ctx context.Context, origin string, destination string, tt TravelTime) error
}

// Cache of address geocoding results.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, coords map[string]domain.Coordinates) error
}
