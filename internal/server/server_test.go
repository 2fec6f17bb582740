package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/mosaicpm/mosaic/internal/bootstrap/config"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/infrastructure/notify"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/model"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/repository"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/uow"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/analysis"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
	"github.com/mosaicpm/mosaic/internal/usecase/tickets"
	"github.com/mosaicpm/mosaic/internal/usecase/webhook"
)

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeCommit(context.Context, ports.CodeAnalysisInput) (tracker.CommitAnalysis, error) {
	return tracker.CommitAnalysis{Summary: "ok"}, nil
}

func (stubAnalyzer) AnalyzePullRequest(context.Context, ports.CodeAnalysisInput) (tracker.PRAnalysis, error) {
	return tracker.PRAnalysis{Summary: "ok"}, nil
}

func (stubAnalyzer) AnalyzeTranscript(context.Context, string) (tracker.TranscriptAnalysis, error) {
	return tracker.TranscriptAnalysis{Summary: "ok"}, nil
}

type stubDiffs struct{}

func (stubDiffs) CommitDiff(context.Context, string, string) (string, error) { return "", nil }

func (stubDiffs) PullRequestDiff(context.Context, string, int) (string, error) { return "", nil }

type memCache struct{ data map[string]string }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type serverHarness struct {
	server  *Server
	repo    *repository.TrackerRepository
	project ports.Project
}

func newHarness(t *testing.T) *serverHarness {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Project{}, &model.Member{}, &model.Branch{}, &model.Commit{},
		&model.PullRequest{}, &model.Ticket{}, &model.Transcript{},
		&model.AuditLog{}, &model.TicketUpdate{}, &model.KVEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := repository.NewTrackerRepository(db)
	unit := uow.NewUnitOfWork(db)
	hub := notify.NewWSHub()
	recorder := audit.NewRecorder(repo)
	profiles := analysis.NewProfileStore()
	cache := &memCache{data: map[string]string{}}

	analysisSvc := analysis.NewService(repo, unit, stubAnalyzer{}, stubDiffs{}, cache,
		hub, recorder, profiles, analysis.NewPool(1))
	webhookSvc := webhook.NewService(repo, unit, stubDiffs{}, cache, hub, recorder, profiles)
	ticketSvc := tickets.NewService(repo, recorder)

	srv := New(config.HTTPConfig{Addr: ":0"}, webhookSvc, analysisSvc, ticketSvc, repo, hub)

	repoName := "acme/webapp"
	project, err := repo.CreateProject(context.Background(), ports.ProjectCreate{
		Name:      "Webapp",
		RepoName:  &repoName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	return &serverHarness{server: srv, repo: repo, project: project}
}

func (h *serverHarness) do(t *testing.T, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

const pushPayload = `{
	"ref": "refs/heads/main",
	"repository": {"full_name": "acme/webapp", "html_url": "https://github.com/acme/webapp"},
	"commits": [{
		"id": "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678",
		"message": "Add login flow",
		"url": "https://github.com/acme/webapp/commit/a1b2c3d4",
		"author": {"name": "dev", "email": "dev@acme.test"}
	}]
}`

func TestWebhookPushEndToEnd(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/github/webhook", pushPayload,
		map[string]string{"X-GitHub-Event": "push"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["success"] {
		t.Fatal("expected success response")
	}

	if _, err := h.repo.FindCommitBySHA(context.Background(), h.project.ProjectID, "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"); err != nil {
		t.Fatalf("commit not persisted: %v", err)
	}
}

func TestWebhookUnknownRepositoryStillAcknowledges(t *testing.T) {
	h := newHarness(t)
	payload := strings.ReplaceAll(pushPayload, "acme/webapp", "other/repo")

	rec := h.do(t, http.MethodPost, "/api/github/webhook", payload,
		map[string]string{"X-GitHub-Event": "push"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unlinked repo", rec.Code)
	}
}

func TestWebhookUnsupportedEventAcknowledges(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/github/webhook", `{}`,
		map[string]string{"X-GitHub-Event": "workflow_run"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/github/webhook", `{not json`,
		map[string]string{"X-GitHub-Event": "push"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("missing error message")
	}
}

func TestWebhookInfoEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/github/webhook", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, _ := body["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		t.Fatalf("timestamp %q: %v", raw, err)
	}
}

func TestAnalyzeCommitAccepted(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.repo.CreateCommit(context.Background(), ports.CommitCreate{
		ProjectID: h.project.ProjectID,
		SHA:       "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678",
		Message:   "Add login flow",
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/commits/1/analyze", "", map[string]string{"x-user-id": "9"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["jobId"] == "" {
		t.Fatal("missing job id")
	}
}

func TestAnalyzeCommitConflictWhileBusy(t *testing.T) {
	h := newHarness(t)
	commit, _, err := h.repo.CreateCommit(context.Background(), ports.CommitCreate{
		ProjectID: h.project.ProjectID,
		SHA:       "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678",
		Message:   "Add login flow",
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}
	if err := h.repo.UpdateCommitAnalysis(context.Background(), commit.CommitID, string(tracker.ProcessingProcessing), nil); err != nil {
		t.Fatalf("mark busy: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/commits/1/analyze", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAnalyzeMissingCommit(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/commits/999/analyze", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTicketModerationViaHTTP(t *testing.T) {
	h := newHarness(t)
	ticket, err := h.repo.CreateTicket(context.Background(), ports.TicketCreate{
		ProjectID:  h.project.ProjectID,
		Name:       "WEBA-1",
		Title:      "Implement session refresh",
		Status:     string(tracker.TicketStatusTodo),
		Moderation: string(tracker.ModerationPending),
		Priority:   "medium",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/api/tickets/1/approve", "", map[string]string{"x-user-id": "3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	stored, err := h.repo.GetTicket(context.Background(), ticket.TicketID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if stored.Moderation != string(tracker.ModerationApproved) {
		t.Fatalf("moderation = %q", stored.Moderation)
	}

	logs, err := h.repo.ListAuditLogs(context.Background(), h.project.ProjectID, 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(logs) != 1 || logs[0].UserID == nil || *logs[0].UserID != 3 {
		t.Fatalf("audit = %+v, want one entry by user 3", logs)
	}
}

func TestModerateMissingTicket(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/tickets/999/reject", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReviewQueueEndpoint(t *testing.T) {
	h := newHarness(t)
	_, err := h.repo.CreateTicket(context.Background(), ports.TicketCreate{
		ProjectID:  h.project.ProjectID,
		Name:       "WEBA-1",
		Title:      "Review login mockups",
		Status:     string(tracker.TicketStatusTodo),
		Moderation: string(tracker.ModerationPending),
		Priority:   "medium",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/api/projects/1/tickets/review", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Tickets []map[string]any `json:"tickets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tickets) != 1 {
		t.Fatalf("queue = %d, want 1", len(body.Tickets))
	}
}
