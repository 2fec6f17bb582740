package tracker

import (
	"encoding/json"
	"errors"
	"strings"
)

// Analysis results come back from the provider as untyped JSON. Each kind is
// parsed into its own struct; a response that is not JSON at all is an error
// (the enrichment job fails), while a parseable object with missing fields is
// padded with the fallback values so business logic never sees a half-empty
// result.

// CommitAnalysis is the structured verdict for a single commit diff.
type CommitAnalysis struct {
	Summary     string   `json:"summary"`
	Impact      string   `json:"impact"`
	Complexity  string   `json:"complexity"`
	Risks       []string `json:"risks,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// PRAnalysis is the structured verdict for a pull request diff.
type PRAnalysis struct {
	Summary    string   `json:"summary"`
	Impact     string   `json:"impact"`
	Complexity string   `json:"complexity"`
	KeyChanges []string `json:"keyChanges,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
}

// TranscriptAnalysis is the structured result of analyzing a meeting
// transcript: a summary plus candidate work items.
type TranscriptAnalysis struct {
	Summary     string                 `json:"summary"`
	KeyTopics   []string               `json:"keyTopics,omitempty"`
	ActionItems []TranscriptActionItem `json:"actionItems,omitempty"`
}

// TranscriptActionItem is one suggested ticket. Role is a free-form hint
// ("engineer", "designer", ...) used to pick an assignee.
type TranscriptActionItem struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

var ErrNoJSONPayload = errors.New("response contains no JSON object")

const fallbackSummary = "analysis unavailable"

// ParseCommitAnalysis decodes a provider response into a CommitAnalysis.
func ParseCommitAnalysis(raw string) (CommitAnalysis, error) {
	var out CommitAnalysis
	if err := decodeJSONPayload(raw, &out); err != nil {
		return CommitAnalysis{}, err
	}
	if out.Summary == "" {
		out.Summary = fallbackSummary
	}
	if out.Impact == "" {
		out.Impact = "unknown"
	}
	if out.Complexity == "" {
		out.Complexity = "unknown"
	}
	return out, nil
}

// ParsePRAnalysis decodes a provider response into a PRAnalysis.
func ParsePRAnalysis(raw string) (PRAnalysis, error) {
	var out PRAnalysis
	if err := decodeJSONPayload(raw, &out); err != nil {
		return PRAnalysis{}, err
	}
	if out.Summary == "" {
		out.Summary = fallbackSummary
	}
	if out.Impact == "" {
		out.Impact = "unknown"
	}
	if out.Complexity == "" {
		out.Complexity = "unknown"
	}
	return out, nil
}

// ParseTranscriptAnalysis decodes a provider response into a
// TranscriptAnalysis. Action items without a title are dropped.
func ParseTranscriptAnalysis(raw string) (TranscriptAnalysis, error) {
	var out TranscriptAnalysis
	if err := decodeJSONPayload(raw, &out); err != nil {
		return TranscriptAnalysis{}, err
	}
	if out.Summary == "" {
		out.Summary = fallbackSummary
	}

	items := out.ActionItems[:0]
	for _, item := range out.ActionItems {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		items = append(items, item)
	}
	out.ActionItems = items
	return out, nil
}

// decodeJSONPayload extracts the first JSON object from raw text and decodes
// it into v. Providers wrap payloads in prose or markdown fences often enough
// that decoding the raw string directly is not an option.
func decodeJSONPayload(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ErrNoJSONPayload
	}

	return json.Unmarshal([]byte(raw[start:end+1]), v)
}
