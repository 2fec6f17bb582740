package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mosaicpm/mosaic/internal/bootstrap/config"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// ModelSettings is the slice of the analysis profile the provider needs.
type ModelSettings struct {
	Model       string
	Temperature float64
	MaxDiffSize int
}

// SettingsSource returns the current model settings; the profile store
// implements it so hot-reloaded settings apply to the next call.
type SettingsSource interface {
	ModelSettings() ModelSettings
}

// OpenAIAnalyzer implements ports.Analyzer against any chat-completions
// compatible endpoint. Each prompt carries a JSON schema reflected from the
// expected result struct; the response is still parsed leniently because
// providers wrap payloads in prose anyway.
type OpenAIAnalyzer struct {
	client   openai.Client
	settings SettingsSource
}

var _ ports.Analyzer = (*OpenAIAnalyzer)(nil)

func NewOpenAIAnalyzer(cfg config.AnalysisConfig, settings SettingsSource) (*OpenAIAnalyzer, error) {
	if settings == nil {
		return nil, errors.New("settings source is required")
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIAnalyzer{
		client:   openai.NewClient(opts...),
		settings: settings,
	}, nil
}

var (
	commitSchemaJSON     = mustSchemaJSON(&tracker.CommitAnalysis{})
	prSchemaJSON         = mustSchemaJSON(&tracker.PRAnalysis{})
	transcriptSchemaJSON = mustSchemaJSON(&tracker.TranscriptAnalysis{})
)

func mustSchemaJSON(v any) string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("reflect schema for %T: %v", v, err))
	}
	return string(raw)
}

func (a *OpenAIAnalyzer) AnalyzeCommit(ctx context.Context, input ports.CodeAnalysisInput) (tracker.CommitAnalysis, error) {
	prompt := buildCodePrompt("commit", input.Title, input.Body, input.Diff, a.settings.ModelSettings().MaxDiffSize)

	raw, err := a.complete(ctx, commitSchemaJSON, prompt)
	if err != nil {
		return tracker.CommitAnalysis{}, err
	}
	return tracker.ParseCommitAnalysis(raw)
}

func (a *OpenAIAnalyzer) AnalyzePullRequest(ctx context.Context, input ports.CodeAnalysisInput) (tracker.PRAnalysis, error) {
	prompt := buildCodePrompt("pull request", input.Title, input.Body, input.Diff, a.settings.ModelSettings().MaxDiffSize)

	raw, err := a.complete(ctx, prSchemaJSON, prompt)
	if err != nil {
		return tracker.PRAnalysis{}, err
	}
	return tracker.ParsePRAnalysis(raw)
}

func (a *OpenAIAnalyzer) AnalyzeTranscript(ctx context.Context, content string) (tracker.TranscriptAnalysis, error) {
	var prompt strings.Builder
	prompt.WriteString("Analyze the following meeting transcript. Summarize it, list the key topics, ")
	prompt.WriteString("and extract concrete action items with a suggested role (engineer, designer, qa, pm) and priority.\n\n")
	prompt.WriteString("Transcript:\n")
	prompt.WriteString(content)

	raw, err := a.complete(ctx, transcriptSchemaJSON, prompt.String())
	if err != nil {
		return tracker.TranscriptAnalysis{}, err
	}
	return tracker.ParseTranscriptAnalysis(raw)
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, schemaJSON string, prompt string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	settings := a.settings.ModelSettings()

	system := "You are a code and meeting analysis assistant for a project management tool. " +
		"Respond with a single JSON object matching this schema, and nothing else:\n" + schemaJSON

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(settings.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(settings.Temperature),
	})
	if err != nil {
		return "", errs.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func buildCodePrompt(kind string, title string, body string, diff string, maxDiffSize int) string {
	if maxDiffSize > 0 && len(diff) > maxDiffSize {
		diff = diff[:maxDiffSize] + "\n... (diff truncated)"
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Analyze this %s for a project management tool. ", kind)
	prompt.WriteString("Describe what changed, the impact (low/medium/high), and the complexity (low/medium/high).\n\n")
	fmt.Fprintf(&prompt, "Title: %s\n", title)
	if strings.TrimSpace(body) != "" {
		fmt.Fprintf(&prompt, "Description:\n%s\n", body)
	}
	if strings.TrimSpace(diff) != "" {
		fmt.Fprintf(&prompt, "\nDiff:\n%s\n", diff)
	} else {
		prompt.WriteString("\nNo diff is available; analyze from the title and description alone.\n")
	}
	return prompt.String()
}
