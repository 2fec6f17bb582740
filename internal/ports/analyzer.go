package ports

import (
	"context"

	"github.com/mosaicpm/mosaic/internal/domain/tracker"
)

// CodeAnalysisInput is what the analyzer sees for a commit or PR: the
// surrounding text plus the unified diff (possibly empty when the fetch
// failed).
type CodeAnalysisInput struct {
	Title string
	Body  string
	Diff  string
}

// Analyzer is the text-to-structured-result provider. A provider error or a
// response with no JSON payload surfaces as an error; the caller maps it to
// the failed processing state. Implementations must not hold locks across
// the provider call.
type Analyzer interface {
	AnalyzeCommit(ctx context.Context, input CodeAnalysisInput) (tracker.CommitAnalysis, error)
	AnalyzePullRequest(ctx context.Context, input CodeAnalysisInput) (tracker.PRAnalysis, error)
	AnalyzeTranscript(ctx context.Context, content string) (tracker.TranscriptAnalysis, error)
}
