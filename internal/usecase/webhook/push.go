package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

const branchRefPrefix = "refs/heads/"

// HandlePush processes a push delivery: resolves the project, upserts the
// branch, and persists each new commit with its diff stats and ticket link.
// Redelivered commits are skipped by natural key (project, sha). Commits that
// exceed the minor-change threshold get an audit entry.
func (s *Service) HandlePush(ctx context.Context, event PushEvent) error {
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "push_handler"),
		slog.String("repository", event.Repository.FullName),
		slog.String("ref", event.Ref),
	)

	if len(event.Commits) == 0 {
		logging.Info(ctx, "push carries no commits, skipping")
		return nil
	}
	if !strings.HasPrefix(event.Ref, branchRefPrefix) {
		logging.Info(ctx, "non-branch ref, skipping")
		return nil
	}

	project, ok, err := s.resolveProject(ctx, event.Repository.FullName)
	if err != nil {
		return errs.Wrap(err, "resolve project")
	}
	if !ok {
		return nil
	}

	branchName := strings.TrimPrefix(event.Ref, branchRefPrefix)
	first := event.Commits[0]
	branch, err := s.upsertBranch(ctx, project.ProjectID, branchName,
		event.Repository.HTMLURL, first.Author.Name, first.Author.Email)
	if err != nil {
		return err
	}

	for _, commit := range event.Commits {
		if err := s.processPushCommit(ctx, project, branch, event.Repository.FullName, branchName, commit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) processPushCommit(ctx context.Context, project ports.Project, branch ports.Branch, repoFullName, branchName string, commit PushCommit) error {
	ctx = logging.WithAttrs(ctx, slog.String("sha", shortSHA(commit.ID)))

	// Redelivery check before any network work; the create below still
	// tolerates a concurrent insert.
	_, err := s.repo.FindCommitBySHA(ctx, project.ProjectID, commit.ID)
	if err == nil {
		logging.Info(ctx, "commit already recorded, skipping")
		return nil
	}
	if !errors.Is(err, ports.ErrCommitNotFound) {
		return errs.Wrap(err, "find commit")
	}

	diff := s.fetchCommitDiff(ctx, repoFullName, commit.ID)
	additions, deletions := countDiffStats(diff)

	ticketID, ticketName, err := s.resolveTicketLink(ctx, project.ProjectID, commit.Message)
	if err != nil {
		return errs.Wrap(err, "resolve ticket link")
	}

	branchID := branch.BranchID
	var created bool
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		_, inserted, err := s.repo.CreateCommit(txCtx, ports.CommitCreate{
			ProjectID:   project.ProjectID,
			BranchID:    &branchID,
			TicketID:    ticketID,
			SHA:         commit.ID,
			Message:     commit.Message,
			Author:      commit.Author.Name,
			AuthorEmail: commit.Author.Email,
			URL:         commit.URL,
			Additions:   additions,
			Deletions:   deletions,
			CreatedAt:   s.nowUTCString(),
		})
		created = inserted
		return err
	})
	if err != nil {
		return errs.Wrap(err, "persist commit")
	}
	if !created {
		logging.Info(ctx, "commit inserted concurrently, skipping audit")
		return nil
	}

	if additions+deletions > s.threshold.MinorChangeThreshold() {
		s.recorder.Record(ctx, project.ProjectID,
			"Push to "+branchName,
			commitAuditDescription(commit.ID, commit.Message, ticketName),
			tracker.SystemActor())
	}
	return nil
}
