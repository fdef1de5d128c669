package traveltime

import (
	"commute-eta-service/internal/domain"
	"fmt"
)

// Both errors match domain.ErrProvider: the provider was reachable but the
// locations cannot be routed.
var (
	// ErrNoRoute is returned when the provider answered but found no route.
	ErrNoRoute = fmt.Errorf("no route found: %w", domain.ErrProvider)
	// ErrEmptyLocation is returned for blank origins or destinations.
	ErrEmptyLocation = fmt.Errorf("origin and destination must be non-empty: %w", domain.ErrProvider)
)
