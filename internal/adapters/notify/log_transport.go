package notify

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"context"
)

// LogTransport writes notifications to the structured log.
type LogTransport struct {
	logger log.Logger
}

func NewLogTransport(logger log.Logger) *LogTransport {
	if logger == nil {
		logger = log.WithName("notify")
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, n domain.Notification) error {
	t.logger.Info(n.Title,
		"body", n.Body,
		"tag", n.Tag,
		"route_id", n.RouteID,
		"require_interaction", n.RequireInteraction,
	)
	return nil
}
