package notify

import (
	"context"
	"log/slog"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// Multi fans one event out to every configured sink. A failing sink is
// logged and skipped; fan-out is best-effort by contract, so Publish never
// returns an error.
type Multi struct {
	sinks []ports.Notifier
}

var _ ports.Notifier = (*Multi)(nil)

func NewMulti(sinks ...ports.Notifier) *Multi {
	filtered := make([]ports.Notifier, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return &Multi{sinks: filtered}
}

func (m *Multi) Publish(ctx context.Context, event ports.NotifyEvent) error {
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			logging.Warn(ctx, "notify sink failed",
				slog.String("event_type", event.Type),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
	return nil
}
