package ports

import (
	"commute-eta-service/internal/domain"
	"context"
)

// Port: durable per-user storage of route definitions.
type RouteStore interface {
	// Return the user's routes in creation order.
	List(ctx context.Context, userID string) ([]*domain.Route, error)
	// Return one route, or domain.ErrNotFound.
	Get(ctx context.Context, userID string, id string) (*domain.Route, error)
	// Persist a new route. ID and CreatedAt are assigned when empty.
	Create(ctx context.Context, route *domain.Route) (*domain.Route, error)
	// Replace a stored route's fields, or return domain.ErrNotFound.
	Update(ctx context.Context, route *domain.Route) (*domain.Route, error)
	// Remove a route; false when it did not exist.
	Delete(ctx context.Context, userID string, id string) (bool, error)
	// Remove all of the user's routes.
	Clear(ctx context.Context, userID string) error
	// Return the user together with all of their routes.
	ExportAll(ctx context.Context, userID string) (*domain.Export, error)
	// Replace the user's routes with freshly identified copies of routes.
	ImportAll(ctx context.Context, userID string, routes []*domain.Route) ([]*domain.Route, error)
}

// Port: storage of user records.
type UserStore interface {
	// Return the user with this email, creating it on first use.
	EnsureUser(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}
