package ports

import "context"

// DiffFetcher retrieves unified diffs from the hosting provider. Calls are
// best-effort from the caller's point of view: a failure is logged and the
// surrounding operation continues without the diff.
type DiffFetcher interface {
	CommitDiff(ctx context.Context, repoFullName string, sha string) (string, error)
	PullRequestDiff(ctx context.Context, repoFullName string, number int) (string, error)
}
