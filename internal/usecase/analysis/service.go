package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
)

// ErrAnalysisInProgress rejects an enqueue while a job for the same entity is
// already pending or processing. Completed and failed entities can be
// re-analyzed.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Service runs asynchronous AI enrichment: transcript-to-tickets, commit and
// pull request analysis. Enqueue methods write the pending state
// synchronously and hand the rest to the pool; workers own the
// processing -> completed|failed transition.
type Service struct {
	repo     ports.TrackerRepository
	uow      ports.UnitOfWork
	analyzer ports.Analyzer
	diffs    ports.DiffFetcher
	cache    ports.Cache
	notifier ports.Notifier
	recorder *audit.Recorder
	profiles *ProfileStore
	pool     *Pool
	now      func() time.Time
}

func NewService(
	repo ports.TrackerRepository,
	uow ports.UnitOfWork,
	analyzer ports.Analyzer,
	diffs ports.DiffFetcher,
	cache ports.Cache,
	notifier ports.Notifier,
	recorder *audit.Recorder,
	profiles *ProfileStore,
	pool *Pool,
) *Service {
	return &Service{
		repo:     repo,
		uow:      uow,
		analyzer: analyzer,
		diffs:    diffs,
		cache:    cache,
		notifier: notifier,
		recorder: recorder,
		profiles: profiles,
		pool:     pool,
		now:      time.Now,
	}
}

// Wait blocks until in-flight jobs drain. Called on shutdown.
func (s *Service) Wait() {
	s.pool.Wait()
}

func (s *Service) nowUTCString() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if err := s.notifier.Publish(ctx, ports.NotifyEvent{Type: eventType, Payload: payload}); err != nil {
		logging.Warn(ctx, "notify failed",
			slog.String("event", eventType),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// summaryLine trims a message to its first line for prompts and audit text.
func summaryLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
