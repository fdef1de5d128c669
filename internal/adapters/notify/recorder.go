package notify

import (
	"commute-eta-service/internal/domain"
	"context"
	"sync"
)

// Recorder keeps every notification it is sent. Err, when set, is returned
// from Send instead.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Notification
	Err  error
}

func (r *Recorder) Send(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications in send order.
func (r *Recorder) Sent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}
