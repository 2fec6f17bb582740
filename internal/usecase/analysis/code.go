package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

const codeDiffCacheTTL = 24 * time.Hour

// EnqueueCommit schedules AI analysis for a stored commit. The pending state
// is written before returning so the API response already reflects it; the
// write is conditional, so a concurrent trigger loses and sees
// ErrAnalysisInProgress instead of double-enqueueing.
func (s *Service) EnqueueCommit(ctx context.Context, commitID uint64, actor tracker.Actor) (string, error) {
	ok, err := s.repo.MarkCommitAnalysisPending(ctx, commitID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAnalysisInProgress
	}

	jobID := s.pool.Submit(ctx, "commit_analysis", func(jobCtx context.Context) {
		s.processCommit(jobCtx, commitID, actor)
	})
	return jobID, nil
}

// EnqueuePullRequest schedules AI analysis for a stored pull request.
func (s *Service) EnqueuePullRequest(ctx context.Context, pullRequestID uint64, actor tracker.Actor) (string, error) {
	ok, err := s.repo.MarkPullRequestAnalysisPending(ctx, pullRequestID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAnalysisInProgress
	}

	jobID := s.pool.Submit(ctx, "pull_request_analysis", func(jobCtx context.Context) {
		s.processPullRequest(jobCtx, pullRequestID, actor)
	})
	return jobID, nil
}

func (s *Service) processCommit(ctx context.Context, commitID uint64, actor tracker.Actor) {
	ctx = logging.WithAttrs(ctx, slog.Uint64("commit_id", commitID))

	if err := s.repo.UpdateCommitAnalysis(ctx, commitID, string(tracker.ProcessingProcessing), nil); err != nil {
		logging.Error(ctx, "mark commit processing failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	commit, err := s.repo.GetCommit(ctx, commitID)
	if err != nil {
		logging.Error(ctx, "load commit failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	diff := s.codeDiff(ctx, commit.ProjectID, "diff:commit:"+commit.SHA, func(jobCtx context.Context, repoFullName string) (string, error) {
		return s.diffs.CommitDiff(jobCtx, repoFullName, commit.SHA)
	})

	result, err := s.analyzer.AnalyzeCommit(ctx, ports.CodeAnalysisInput{
		Title: summaryLine(commit.Message),
		Body:  commit.Message,
		Diff:  diff,
	})
	if err != nil {
		s.failCode(ctx, "commit", commit.ProjectID, commitID, err, func(status string) error {
			return s.repo.UpdateCommitAnalysis(ctx, commitID, status, nil)
		})
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.failCode(ctx, "commit", commit.ProjectID, commitID, err, func(status string) error {
			return s.repo.UpdateCommitAnalysis(ctx, commitID, status, nil)
		})
		return
	}

	encoded := string(resultJSON)
	if err := s.repo.UpdateCommitAnalysis(ctx, commitID, string(tracker.ProcessingCompleted), &encoded); err != nil {
		logging.Error(ctx, "store commit analysis failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	s.recorder.Record(ctx, commit.ProjectID,
		"Commit analyzed",
		fmt.Sprintf("Commit %.8s: %s", commit.SHA, summaryLine(result.Summary)),
		actor)
	s.publish(ctx, ports.EventCodeAnalysisComplete, map[string]any{
		"kind":      "commit",
		"id":        commitID,
		"projectId": commit.ProjectID,
	})
}

func (s *Service) processPullRequest(ctx context.Context, pullRequestID uint64, actor tracker.Actor) {
	ctx = logging.WithAttrs(ctx, slog.Uint64("pull_request_id", pullRequestID))

	if err := s.repo.UpdatePullRequestAnalysis(ctx, pullRequestID, string(tracker.ProcessingProcessing), nil); err != nil {
		logging.Error(ctx, "mark pull request processing failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	pr, err := s.repo.GetPullRequest(ctx, pullRequestID)
	if err != nil {
		logging.Error(ctx, "load pull request failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	diff := s.codeDiff(ctx, pr.ProjectID, fmt.Sprintf("diff:pr:%d:%d", pr.ProjectID, pr.Number), func(jobCtx context.Context, repoFullName string) (string, error) {
		return s.diffs.PullRequestDiff(jobCtx, repoFullName, pr.Number)
	})

	result, err := s.analyzer.AnalyzePullRequest(ctx, ports.CodeAnalysisInput{
		Title: pr.Title,
		Body:  pr.Body,
		Diff:  diff,
	})
	if err != nil {
		s.failCode(ctx, "pull_request", pr.ProjectID, pullRequestID, err, func(status string) error {
			return s.repo.UpdatePullRequestAnalysis(ctx, pullRequestID, status, nil)
		})
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.failCode(ctx, "pull_request", pr.ProjectID, pullRequestID, err, func(status string) error {
			return s.repo.UpdatePullRequestAnalysis(ctx, pullRequestID, status, nil)
		})
		return
	}

	encoded := string(resultJSON)
	if err := s.repo.UpdatePullRequestAnalysis(ctx, pullRequestID, string(tracker.ProcessingCompleted), &encoded); err != nil {
		logging.Error(ctx, "store pull request analysis failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	s.recorder.Record(ctx, pr.ProjectID,
		fmt.Sprintf("PR #%d analyzed", pr.Number),
		summaryLine(result.Summary),
		actor)
	s.publish(ctx, ports.EventCodeAnalysisComplete, map[string]any{
		"kind":      "pull_request",
		"id":        pullRequestID,
		"projectId": pr.ProjectID,
	})
}

// codeDiff resolves the repository full name and fetches the diff through
// the cache. Any failure degrades to analyzing without a diff.
func (s *Service) codeDiff(ctx context.Context, projectID uint64, cacheKey string, fetch func(ctx context.Context, repoFullName string) (string, error)) string {
	if cached, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		return cached
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil || project.RepoName == nil || *project.RepoName == "" {
		logging.Warn(ctx, "no repository linked, analyzing without diff")
		return ""
	}

	diff, err := fetch(ctx, *project.RepoName)
	if err != nil {
		logging.Warn(ctx, "diff fetch failed, analyzing without diff",
			slog.Any("err", errs.Loggable(err)))
		return ""
	}

	if err := s.cache.Set(ctx, cacheKey, diff, codeDiffCacheTTL); err != nil {
		logging.Warn(ctx, "diff cache write failed", slog.Any("err", errs.Loggable(err)))
	}
	return diff
}

func (s *Service) failCode(ctx context.Context, kind string, projectID, entityID uint64, cause error, markFailed func(status string) error) {
	logging.Error(ctx, "code analysis failed",
		slog.String("kind", kind),
		slog.Any("err", errs.Loggable(cause)),
	)

	if err := markFailed(string(tracker.ProcessingFailed)); err != nil {
		logging.Error(ctx, "mark analysis failed errored", slog.Any("err", errs.Loggable(err)))
	}
	s.publish(ctx, ports.EventCodeAnalysisFailed, map[string]any{
		"kind":      kind,
		"id":        entityID,
		"projectId": projectID,
		"error":     cause.Error(),
	})
}
