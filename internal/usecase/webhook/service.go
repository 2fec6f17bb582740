package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
)

// ThresholdSource supplies the minor-change threshold; the analysis profile
// store implements it so operators can tune the value without a restart.
type ThresholdSource interface {
	MinorChangeThreshold() int
}

// Service orchestrates webhook event processing: repository resolution,
// reference extraction, idempotent entity upserts, audit entries, and merge
// auto-completion. Deliveries are stateless request-scoped executions; all
// shared state lives in the backing store.
type Service struct {
	repo      ports.TrackerRepository
	uow       ports.UnitOfWork
	diffs     ports.DiffFetcher
	cache     ports.Cache
	notifier  ports.Notifier
	recorder  *audit.Recorder
	threshold ThresholdSource
	now       func() time.Time
}

func NewService(
	repo ports.TrackerRepository,
	uow ports.UnitOfWork,
	diffs ports.DiffFetcher,
	cache ports.Cache,
	notifier ports.Notifier,
	recorder *audit.Recorder,
	threshold ThresholdSource,
) *Service {
	return &Service{
		repo:      repo,
		uow:       uow,
		diffs:     diffs,
		cache:     cache,
		notifier:  notifier,
		recorder:  recorder,
		threshold: threshold,
		now:       time.Now,
	}
}

func (s *Service) nowUTCString() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// resolveProject maps a webhook's owner/repo full name to the project that
// claims it: exact repo-name match, or repo URL containing the full name.
// Zero or multiple matches halt processing for the event — logged, never
// fatal, because GitHub will not retry on a 200 and the operator needs
// visibility rather than a crash loop.
func (s *Service) resolveProject(ctx context.Context, fullName string) (ports.Project, bool, error) {
	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return ports.Project{}, false, errors.New("repository full name is required")
	}

	projects, err := s.repo.FindProjectsByRepo(ctx, trimmed)
	if err != nil {
		return ports.Project{}, false, err
	}

	switch len(projects) {
	case 1:
		return projects[0], true, nil
	case 0:
		logging.Info(ctx, "no project linked to repository, skipping event",
			slog.String("repository", trimmed))
		return ports.Project{}, false, nil
	default:
		logging.Warn(ctx, "repository matches multiple projects, skipping event",
			slog.String("repository", trimmed),
			slog.Int("matches", len(projects)))
		return ports.Project{}, false, nil
	}
}

// resolveTicketLink extracts ticket references from text and resolves them
// against the project's tickets. The first extracted identifier that names an
// existing ticket wins; identifiers are pre-sorted by the extractor, so the
// choice is deterministic. Returns (nil, "") when nothing matches.
func (s *Service) resolveTicketLink(ctx context.Context, projectID uint64, text string) (*uint64, string, error) {
	for _, ref := range tracker.ExtractTicketRefs(text) {
		ticket, err := s.repo.FindTicketByName(ctx, projectID, ref)
		if err != nil {
			if errors.Is(err, ports.ErrTicketNotFound) {
				continue
			}
			return nil, "", err
		}
		id := ticket.TicketID
		return &id, ticket.Name, nil
	}
	return nil, "", nil
}
