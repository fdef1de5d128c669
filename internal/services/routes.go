package services

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoCurrentUser is returned when a route operation runs with nobody
// signed in.
var ErrNoCurrentUser = errors.New("no current user")

// ChangeNotifier is told whenever the set of routes changes.
type ChangeNotifier interface {
	RoutesChanged()
}

type noopNotifier struct{}

func (noopNotifier) RoutesChanged() {}

// RouteService manages the current user's routes. New and relocated
// routes are checked against provider when one is configured.
type RouteService struct {
	store    ports.RouteStore
	identity ports.Identity
	sink     ports.NotificationSink
	changes  ChangeNotifier
	provider ports.TravelTimeProvider
}

func NewRouteService(
	store ports.RouteStore,
	identity ports.Identity,
	sink ports.NotificationSink,
	changes ChangeNotifier,
	provider ports.TravelTimeProvider,
) *RouteService {
	if changes == nil {
		changes = noopNotifier{}
	}
	return &RouteService{store: store, identity: identity, sink: sink, changes: changes, provider: provider}
}

func (s *RouteService) currentUser(ctx context.Context) (*domain.User, error) {
	u, err := s.identity.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if u == nil {
		return nil, ErrNoCurrentUser
	}
	return u, nil
}

func (s *RouteService) List(ctx context.Context) ([]*domain.Route, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := s.store.List(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

func (s *RouteService) Get(ctx context.Context, id string) (*domain.Route, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, u.ID, id)
}

// Create validates in and stores it as a new route. Enabling
// notifications requires permission.
func (s *RouteService) Create(ctx context.Context, in domain.RouteInput) (*domain.Route, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	route, err := in.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.checkRoute(ctx, route.FromLocation, route.ToLocation); err != nil {
		return nil, err
	}
	if route.NotificationsEnabled {
		if err := s.ensurePermission(ctx); err != nil {
			return nil, err
		}
	}
	route.UserID = u.ID

	created, err := s.store.Create(ctx, &route)
	if err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}
	s.changes.RoutesChanged()
	return created, nil
}

// Update merges patch over the stored route.
func (s *RouteService) Update(ctx context.Context, id string, patch domain.RoutePatch) (*domain.Route, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := patch.Apply(existing)
	if err != nil {
		return nil, err
	}
	if merged.FromLocation != existing.FromLocation || merged.ToLocation != existing.ToLocation {
		if err := s.checkRoute(ctx, merged.FromLocation, merged.ToLocation); err != nil {
			return nil, err
		}
	}
	if merged.NotificationsEnabled && !existing.NotificationsEnabled {
		if err := s.ensurePermission(ctx); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Update(ctx, &merged)
	if err != nil {
		return nil, fmt.Errorf("update route: %w", err)
	}
	s.changes.RoutesChanged()
	return updated, nil
}

// checkRoute asks the provider for a travel time between from and to. A
// provider that answers with no route rejects the pair with an error
// matching domain.ErrProvider. Transport failures are logged and let
// through since refreshes fall back to synthetic estimates anyway.
func (s *RouteService) checkRoute(ctx context.Context, from, to string) error {
	if s.provider == nil {
		return nil
	}

	_, err := s.provider.TravelTime(ctx, from, to)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrProvider):
		return fmt.Errorf("check route %q -> %q: %w", from, to, err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		log.Warn("travel time provider unavailable, accepting route unchecked",
			"origin", from, "destination", to, "err", err)
		return nil
	}
}

func (s *RouteService) Delete(ctx context.Context, id string) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	ok, err := s.store.Delete(ctx, u.ID, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete route %s: %w", id, domain.ErrNotFound)
	}
	s.changes.RoutesChanged()
	return nil
}

func (s *RouteService) Clear(ctx context.Context) error {
	u, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx, u.ID); err != nil {
		return fmt.Errorf("clear routes: %w", err)
	}
	s.changes.RoutesChanged()
	return nil
}

// ToggleNotifications flips the route's notification flag. Turning it on
// asks for permission first; if that is refused the flag is unchanged and
// the error matches domain.ErrPermissionDenied.
func (s *RouteService) ToggleNotifications(ctx context.Context, id string) (*domain.Route, error) {
	route, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !route.NotificationsEnabled {
		if err := s.ensurePermission(ctx); err != nil {
			return nil, err
		}
	}
	route.NotificationsEnabled = !route.NotificationsEnabled

	updated, err := s.store.Update(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("toggle notifications: %w", err)
	}
	s.changes.RoutesChanged()
	return updated, nil
}

func (s *RouteService) ensurePermission(ctx context.Context) error {
	if s.sink.PermissionState() == domain.PermissionGranted {
		return nil
	}

	state, err := s.sink.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request notification permission: %w", err)
	}
	if state != domain.PermissionGranted {
		return fmt.Errorf("notification permission %s: %w", state, domain.ErrPermissionDenied)
	}
	return nil
}

// PermissionState reports the notification sink's permission.
func (s *RouteService) PermissionState() domain.PermissionState {
	return s.sink.PermissionState()
}

// RequestPermission asks the sink for permission and returns the result.
func (s *RouteService) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	return s.sink.RequestPermission(ctx)
}

// SendTestNotification delivers the test alert.
func (s *RouteService) SendTestNotification(ctx context.Context) error {
	if err := s.ensurePermission(ctx); err != nil {
		return err
	}
	if err := s.sink.Deliver(ctx, TestNotification()); err != nil {
		return fmt.Errorf("test notification: %w", err)
	}
	return nil
}

func (s *RouteService) Export(ctx context.Context) (*domain.Export, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	exp, err := s.store.ExportAll(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("export routes: %w", err)
	}
	if exp.User == nil {
		exp.User = u
	}
	return exp, nil
}

type importedRoute struct {
	Name                 string     `json:"name"`
	FromLocation         string     `json:"fromLocation"`
	ToLocation           string     `json:"toLocation"`
	TargetArrivalTime    string     `json:"targetArrivalTime"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	CreatedAt            *time.Time `json:"createdAt"`
}

// ParseImport decodes an export file. Any JSON object with a routes array
// is accepted; other fields are ignored. Every route must validate. All
// failures match domain.ErrInvalidFormat.
func ParseImport(data []byte) ([]*domain.Route, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("import: payload is not a JSON object: %w", domain.ErrInvalidFormat)
	}

	raw, ok := doc["routes"]
	if !ok {
		return nil, fmt.Errorf("import: missing routes: %w", domain.ErrInvalidFormat)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fmt.Errorf("import: routes is not an array: %w", domain.ErrInvalidFormat)
	}

	routes := make([]*domain.Route, 0, len(items))
	for i, item := range items {
		var in importedRoute
		if err := json.Unmarshal(item, &in); err != nil {
			return nil, fmt.Errorf("import: route %d: %v: %w", i, err, domain.ErrInvalidFormat)
		}

		r, err := domain.RouteInput{
			Name:                 in.Name,
			FromLocation:         in.FromLocation,
			ToLocation:           in.ToLocation,
			TargetArrivalTime:    in.TargetArrivalTime,
			NotificationsEnabled: in.NotificationsEnabled,
		}.Validate()
		if err != nil {
			return nil, fmt.Errorf("import: route %d: %v: %w", i, err, domain.ErrInvalidFormat)
		}
		if in.CreatedAt != nil {
			r.CreatedAt = *in.CreatedAt
		}
		routes = append(routes, &r)
	}
	return routes, nil
}

// Import replaces the current user's routes with those in data. Nothing is
// written unless the whole payload is valid.
func (s *RouteService) Import(ctx context.Context, data []byte) ([]*domain.Route, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	routes, err := ParseImport(data)
	if err != nil {
		return nil, err
	}
	if err := s.importPermission(ctx, routes); err != nil {
		return nil, err
	}

	imported, err := s.store.ImportAll(ctx, u.ID, routes)
	if err != nil {
		return nil, fmt.Errorf("import routes: %w", err)
	}
	s.changes.RoutesChanged()
	return imported, nil
}

// importPermission asks for permission when an imported route enables
// notifications. If it is refused those routes are imported with the flag
// cleared.
func (s *RouteService) importPermission(ctx context.Context, routes []*domain.Route) error {
	var enabled []*domain.Route
	for _, r := range routes {
		if r.NotificationsEnabled {
			enabled = append(enabled, r)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	err := s.ensurePermission(ctx)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		return err
	}
	log.Info("notification permission refused, importing routes with notifications off", "routes", len(enabled))
	for _, r := range enabled {
		r.NotificationsEnabled = false
	}
	return nil
}
