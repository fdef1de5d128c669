package obs

import (
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/platform/metrics"
	"context"
	"time"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	CycleIDKey   ctxKey = "cycle_id"
)

// WithRequestID tags ctx with an HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithCycleID tags ctx with a refresh cycle ID.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CycleIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(CycleIDKey).(string)
	return id
}

// Time starts timing op. The returned func logs the duration and records it
// in the operation histogram; pass the named error result so failures are
// labelled.
//
//	defer obs.Time(ctx, "ors.TravelTime")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID := RequestID(ctx)
	cycleID := CycleID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			metrics.OperationDuration.WithLabelValues(name, "error").Observe(dur.Seconds())
			log.Debug("operation failed", "req_id", reqID, "cycle_id", cycleID, "op", name, "dur", dur, "err", *errp)
			return
		}
		metrics.OperationDuration.WithLabelValues(name, "ok").Observe(dur.Seconds())
		log.Debug("operation finished", "req_id", reqID, "cycle_id", cycleID, "op", name, "dur", dur)
	}
}
