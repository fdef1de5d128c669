package ports

import (
	"commute-eta-service/internal/domain"
	"context"
)

// Port: supplies the user the current session acts for.
type Identity interface {
	// Return the current user, or nil when nobody is signed in.
	Current(ctx context.Context) (*domain.User, error)
}
