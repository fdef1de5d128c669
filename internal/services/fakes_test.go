package services

import (
	"commute-eta-service/internal/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memRouteStore struct {
	mu      sync.Mutex
	routes  map[string]*domain.Route
	seq     int
	listErr error
}

func newMemRouteStore() *memRouteStore {
	return &memRouteStore{routes: make(map[string]*domain.Route)}
}

func (m *memRouteStore) List(_ context.Context, userID string) ([]*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Route, 0, len(m.routes))
	for _, r := range m.routes {
		if r.UserID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRouteStore) Get(_ context.Context, userID, id string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (m *memRouteStore) Create(_ context.Context, route *domain.Route) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *route
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("r%03d", m.seq)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.routes[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memRouteStore) Update(_ context.Context, route *domain.Route) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.routes[route.ID]
	if !ok || existing.UserID != route.UserID {
		return nil, fmt.Errorf("route %s: %w", route.ID, domain.ErrNotFound)
	}
	c := *route
	now := time.Now()
	c.UpdatedAt = &now
	m.routes[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memRouteStore) Delete(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok || r.UserID != userID {
		return false, nil
	}
	delete(m.routes, id)
	return true, nil
}

func (m *memRouteStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.routes {
		if r.UserID == userID {
			delete(m.routes, id)
		}
	}
	return nil
}

func (m *memRouteStore) ExportAll(ctx context.Context, userID string) (*domain.Export, error) {
	routes, err := m.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Export{Routes: routes, ExportedAt: time.Now().UTC().Format(time.RFC3339)}, nil
}

func (m *memRouteStore) ImportAll(_ context.Context, userID string, routes []*domain.Route) ([]*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.routes {
		if r.UserID == userID {
			delete(m.routes, id)
		}
	}
	now := time.Now()
	out := make([]*domain.Route, 0, len(routes))
	for _, in := range routes {
		m.seq++
		c := *in
		c.ID = fmt.Sprintf("imp%03d", m.seq)
		c.UserID = userID
		c.ImportedAt = &now
		m.routes[c.ID] = &c
		o := c
		out = append(out, &o)
	}
	return out, nil
}

type fixedIdentity struct{ user *domain.User }

func (f fixedIdentity) Current(context.Context) (*domain.User, error) { return f.user, nil }

var testUser = &domain.User{ID: "u1", Email: "commuter@example.com", Name: "commuter"}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) RoutesChanged() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
