package ports

import "context"

// TravelTime is a provider's answer for one origin/destination pair.
type TravelTime struct {
	DistanceMeters  int
	DurationSeconds int
	// DurationInTrafficSeconds equals DurationSeconds when the provider has
	// no traffic model.
	DurationInTrafficSeconds int
	StartAddress             string
	EndAddress               string
}

// Contract for retrieving a driving travel time between two free-text locations.
type TravelTimeProvider interface {
	// Return the travel time, or an error when the provider cannot answer.
	TravelTime(ctx context.Context, origin string, destination string) (TravelTime, error)
}
