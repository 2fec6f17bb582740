package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// Recorder appends audit trail entries. Audit writes are a secondary concern
// beside the business mutation they describe: a failure is logged and
// swallowed, never propagated to the caller. Callers that need the entry to
// be transactional with the mutation should not — that coupling is exactly
// what this policy rejects.
type Recorder struct {
	repo ports.TrackerRepository
	now  func() time.Time
}

func NewRecorder(repo ports.TrackerRepository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Record appends one entry. The system actor is stored as a null user id.
func (r *Recorder) Record(ctx context.Context, projectID uint64, header string, description string, actor tracker.Actor) {
	if r == nil || r.repo == nil {
		return
	}

	err := r.repo.AppendAuditLog(ctx, ports.AuditLogCreate{
		ProjectID:   projectID,
		UserID:      actor.UserID(),
		Header:      header,
		Description: description,
		CreatedAt:   r.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		logging.Warn(ctx, "audit write failed",
			slog.Uint64("project_id", projectID),
			slog.String("header", header),
			slog.String("actor", actor.String()),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}
