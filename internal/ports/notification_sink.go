package ports

import (
	"commute-eta-service/internal/domain"
	"context"
)

// Port: delivers point-in-time alerts to the user.
type NotificationSink interface {
	PermissionState() domain.PermissionState
	// Ask for permission. Fails with domain.ErrPermissionDenied when the
	// state is denied or unsupported; otherwise returns the resulting state.
	RequestPermission(ctx context.Context) (domain.PermissionState, error)
	Deliver(ctx context.Context, n domain.Notification) error
}
