package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

const diffCacheTTL = 24 * time.Hour

// upsertBranch finds the branch by (project, name) or creates it attributed
// to the given author. Existing branches are never mutated; the first pusher
// owns the attribution.
func (s *Service) upsertBranch(ctx context.Context, projectID uint64, name, url, author, email string) (ports.Branch, error) {
	branch, err := s.repo.FindBranch(ctx, projectID, name)
	if err == nil {
		return branch, nil
	}
	if !errors.Is(err, ports.ErrBranchNotFound) {
		return ports.Branch{}, errs.Wrap(err, "find branch")
	}

	branch, _, err = s.repo.CreateBranch(ctx, ports.BranchCreate{
		ProjectID:   projectID,
		Name:        name,
		URL:         url,
		Author:      author,
		AuthorEmail: email,
		CreatedAt:   s.nowUTCString(),
	})
	if err != nil {
		return ports.Branch{}, errs.Wrap(err, "create branch")
	}
	return branch, nil
}

// fetchCommitDiff retrieves the unified diff for a commit, consulting the
// cache first. Failures degrade to an empty diff; the commit is persisted
// either way.
func (s *Service) fetchCommitDiff(ctx context.Context, repoFullName, sha string) string {
	key := "diff:commit:" + sha
	if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
		return cached
	}

	diff, err := s.diffs.CommitDiff(ctx, repoFullName, sha)
	if err != nil {
		logging.Warn(ctx, "commit diff fetch failed, continuing without diff",
			slog.String("sha", sha),
			slog.Any("err", errs.Loggable(err)),
		)
		return ""
	}

	if err := s.cache.Set(ctx, key, diff, diffCacheTTL); err != nil {
		logging.Warn(ctx, "diff cache write failed",
			slog.String("key", key),
			slog.Any("err", errs.Loggable(err)),
		)
	}
	return diff
}

// countDiffStats derives added/deleted line counts from a unified diff. File
// header lines (+++/---) do not count.
func countDiffStats(diff string) (additions, deletions int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func commitAuditDescription(sha, message, ticketName string) string {
	desc := fmt.Sprintf("Commit %s: %s", shortSHA(sha), firstLine(message))
	if ticketName != "" {
		desc += fmt.Sprintf(" (ticket %s)", ticketName)
	}
	return desc
}
