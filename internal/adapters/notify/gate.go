package notify

import (
	"commute-eta-service/internal/domain"
	"context"
	"fmt"
	"sync"
)

// Transport hands a notification to its final destination.
type Transport interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Gate implements the NotificationSink port. It tracks the permission
// state and forwards notifications to a Transport only once granted.
//
// Requests from the default state resolve to the configured answer,
// standing in for the user's response to a permission prompt.
type Gate struct {
	mu        sync.Mutex
	state     domain.PermissionState
	answer    domain.PermissionState
	transport Transport
}

func NewGate(t Transport, initial, answer domain.PermissionState) (*Gate, error) {
	if t == nil {
		return nil, fmt.Errorf("notify gate: transport is nil")
	}
	if !initial.Valid() {
		return nil, fmt.Errorf("notify gate: invalid initial permission %q", initial)
	}
	if answer != domain.PermissionGranted && answer != domain.PermissionDenied {
		return nil, fmt.Errorf("notify gate: answer must be granted or denied, got %q", answer)
	}
	return &Gate{state: initial, answer: answer, transport: t}, nil
}

func (g *Gate) PermissionState() domain.PermissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case domain.PermissionUnsupported:
		return g.state, fmt.Errorf("notifications are not supported: %w", domain.ErrPermissionDenied)
	case domain.PermissionDenied:
		return g.state, fmt.Errorf("notifications were denied: %w", domain.ErrPermissionDenied)
	case domain.PermissionDefault:
		g.state = g.answer
	}
	return g.state, nil
}

func (g *Gate) Deliver(ctx context.Context, n domain.Notification) error {
	if state := g.PermissionState(); state != domain.PermissionGranted {
		return fmt.Errorf("deliver %q with permission %s: %w", n.Tag, state, domain.ErrPermissionDenied)
	}
	if err := g.transport.Send(ctx, n); err != nil {
		return fmt.Errorf("deliver %q: %w", n.Tag, err)
	}
	return nil
}
