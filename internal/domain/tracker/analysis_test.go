package tracker

import (
	"errors"
	"testing"
)

func TestParseCommitAnalysis(t *testing.T) {
	raw := `{"summary":"refactors auth flow","impact":"medium","complexity":"low","risks":["session handling"]}`

	got, err := ParseCommitAnalysis(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Summary != "refactors auth flow" || got.Impact != "medium" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.Risks) != 1 {
		t.Fatalf("expected one risk, got %v", got.Risks)
	}
}

func TestParseCommitAnalysisStripsMarkdownFence(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"summary\":\"adds retry\"}\n```\n"

	got, err := ParseCommitAnalysis(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Summary != "adds retry" {
		t.Fatalf("summary = %q", got.Summary)
	}
	if got.Impact != "unknown" || got.Complexity != "unknown" {
		t.Fatalf("missing fields not defaulted: %+v", got)
	}
}

func TestParseCommitAnalysisNoJSON(t *testing.T) {
	_, err := ParseCommitAnalysis("sorry, I cannot analyze this diff")
	if !errors.Is(err, ErrNoJSONPayload) {
		t.Fatalf("err = %v, want ErrNoJSONPayload", err)
	}
}

func TestParseCommitAnalysisMalformedJSON(t *testing.T) {
	if _, err := ParseCommitAnalysis(`{"summary": "unterminated`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseTranscriptAnalysisDropsUntitledItems(t *testing.T) {
	raw := `{
		"summary": "sprint planning",
		"keyTopics": ["auth", "billing"],
		"actionItems": [
			{"title": "Harden login rate limits", "role": "engineer"},
			{"title": "   ", "role": "designer"},
			{"title": "Refresh pricing page", "role": "designer"}
		]
	}`

	got, err := ParseTranscriptAnalysis(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.ActionItems) != 2 {
		t.Fatalf("expected 2 action items, got %d", len(got.ActionItems))
	}
	if got.ActionItems[0].Title != "Harden login rate limits" {
		t.Fatalf("unexpected first item: %+v", got.ActionItems[0])
	}
}

func TestParsePRAnalysisFallbackSummary(t *testing.T) {
	got, err := ParsePRAnalysis(`{"keyChanges":["renames handler"]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Summary != "analysis unavailable" {
		t.Fatalf("summary = %q, want fallback", got.Summary)
	}
}
