package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/model"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/repository"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/uow"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
)

type stubAnalyzer struct {
	transcript tracker.TranscriptAnalysis
	commit     tracker.CommitAnalysis
	pr         tracker.PRAnalysis
	err        error
}

func (s *stubAnalyzer) AnalyzeCommit(context.Context, ports.CodeAnalysisInput) (tracker.CommitAnalysis, error) {
	return s.commit, s.err
}

func (s *stubAnalyzer) AnalyzePullRequest(context.Context, ports.CodeAnalysisInput) (tracker.PRAnalysis, error) {
	return s.pr, s.err
}

func (s *stubAnalyzer) AnalyzeTranscript(context.Context, string) (tracker.TranscriptAnalysis, error) {
	return s.transcript, s.err
}

type stubDiffs struct{ diff string }

func (s *stubDiffs) CommitDiff(context.Context, string, string) (string, error) {
	return s.diff, nil
}

func (s *stubDiffs) PullRequestDiff(context.Context, string, int) (string, error) {
	return s.diff, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []ports.NotifyEvent
}

func (n *recordingNotifier) Publish(_ context.Context, event ports.NotifyEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) ofType(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int
	for _, ev := range n.events {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

type analysisHarness struct {
	service  *Service
	repo     *repository.TrackerRepository
	analyzer *stubAnalyzer
	notifier *recordingNotifier
	project  ports.Project
}

func newHarness(t *testing.T) *analysisHarness {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "analysis.db")), &gorm.Config{})
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
	analyzer := &stubAnalyzer{}
	notifier := &recordingNotifier{}

	svc := NewService(repo, uow.NewUnitOfWork(db), analyzer, &stubDiffs{diff: "+added\n"},
		newMemCache(), notifier, audit.NewRecorder(repo), NewProfileStore(), NewPool(1))

	repoName := "acme/webapp"
	project, err := repo.CreateProject(context.Background(), ports.ProjectCreate{
		Name:      "Webapp",
		RepoName:  &repoName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	return &analysisHarness{service: svc, repo: repo, analyzer: analyzer, notifier: notifier, project: project}
}

func (h *analysisHarness) seedMember(t *testing.T, name, role string) ports.Member {
	t.Helper()
	member, err := h.repo.CreateMember(context.Background(), ports.MemberCreate{
		ProjectID: h.project.ProjectID,
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return member
}

func (h *analysisHarness) seedCommit(t *testing.T) ports.Commit {
	t.Helper()
	commit, _, err := h.repo.CreateCommit(context.Background(), ports.CommitCreate{
		ProjectID:   h.project.ProjectID,
		SHA:         "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678",
		Message:     "Add login flow\n\nFixes AUTH-7",
		Author:      "dev",
		AuthorEmail: "dev@acme.test",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}
	return commit
}

func TestIngestTranscriptCreatesModeratedTickets(t *testing.T) {
	h := newHarness(t)
	engineer := h.seedMember(t, "Casey", "engineer")
	h.seedMember(t, "Alex", "designer")
	h.analyzer.transcript = tracker.TranscriptAnalysis{
		Summary:   "Sprint planning",
		KeyTopics: []string{"auth"},
		ActionItems: []tracker.TranscriptActionItem{
			{Title: "Implement session refresh", Role: "developer", Priority: "High"},
			{Title: "Review login mockups"},
		},
	}

	ctx := context.Background()
	transcript, jobID, err := h.service.IngestTranscript(ctx, h.project.ProjectID, "Sprint planning", "we discussed auth", tracker.UserActor(9))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if jobID == "" {
		t.Fatal("missing job id")
	}
	h.service.Wait()

	stored, err := h.repo.GetTranscript(ctx, transcript.TranscriptID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if stored.ProcessingStatus != string(tracker.ProcessingCompleted) {
		t.Fatalf("status = %q, want completed", stored.ProcessingStatus)
	}
	if stored.ResultJSON == nil {
		t.Fatal("missing result payload")
	}

	tickets, err := h.repo.ListTickets(ctx, h.project.ProjectID, ports.TicketFilter{Moderation: "all"})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.Moderation != string(tracker.ModerationPending) {
			t.Fatalf("ticket %s moderation = %q, want pending", ticket.Name, ticket.Moderation)
		}
		if ticket.Status != string(tracker.TicketStatusTodo) {
			t.Fatalf("ticket %s status = %q, want todo", ticket.Name, ticket.Status)
		}
		if ticket.TranscriptID == nil || *ticket.TranscriptID != transcript.TranscriptID {
			t.Fatalf("ticket %s not linked to transcript", ticket.Name)
		}
	}

	// The "developer" role hint resolves to the engineer through the default
	// alias table.
	var sessionTicket ports.Ticket
	for _, ticket := range tickets {
		if ticket.Title == "Implement session refresh" {
			sessionTicket = ticket
		}
	}
	if sessionTicket.AssigneeID == nil || *sessionTicket.AssigneeID != engineer.MemberID {
		t.Fatalf("assignee = %v, want engineer %d", sessionTicket.AssigneeID, engineer.MemberID)
	}
	if sessionTicket.Priority != "high" {
		t.Fatalf("priority = %q, want high", sessionTicket.Priority)
	}
	if sessionTicket.Name != "WEBA-1" && sessionTicket.Name != "WEBA-2" {
		t.Fatalf("ticket name = %q, want WEBA prefix", sessionTicket.Name)
	}

	// Default listings hide pending tickets until moderation.
	visible, err := h.repo.ListTickets(ctx, h.project.ProjectID, ports.TicketFilter{})
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("visible tickets = %d, want 0 before approval", len(visible))
	}

	if got := h.notifier.ofType(ports.EventTranscriptCompleted); got != 1 {
		t.Fatalf("completion events = %d, want 1", got)
	}

	// Every suggested ticket leaves its own audit entry, plus one summary
	// entry for the transcript itself.
	logs, err := h.repo.ListAuditLogs(ctx, h.project.ProjectID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(logs))
	}
	var perTicket int
	for _, entry := range logs {
		if strings.HasSuffix(entry.Header, "suggested") {
			perTicket++
			if entry.UserID == nil || *entry.UserID != 9 {
				t.Fatalf("audit actor = %v, want user 9", entry.UserID)
			}
		}
	}
	if perTicket != 2 {
		t.Fatalf("per-ticket audit entries = %d, want 2", perTicket)
	}
}

func TestTranscriptFailureMarksFailedAndAllowsRetry(t *testing.T) {
	h := newHarness(t)
	h.analyzer.err = errors.New("provider unavailable")

	ctx := context.Background()
	transcript, _, err := h.service.IngestTranscript(ctx, h.project.ProjectID, "Standup", "notes", tracker.SystemActor())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	h.service.Wait()

	stored, err := h.repo.GetTranscript(ctx, transcript.TranscriptID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if stored.ProcessingStatus != string(tracker.ProcessingFailed) {
		t.Fatalf("status = %q, want failed", stored.ProcessingStatus)
	}
	if stored.ResultJSON != nil {
		t.Fatal("failed analysis must not leave a result payload")
	}
	if got := h.notifier.ofType(ports.EventTranscriptFailed); got != 1 {
		t.Fatalf("failure events = %d, want 1", got)
	}

	// Failed is a terminal state the user can retry from.
	h.analyzer.err = nil
	h.analyzer.transcript = tracker.TranscriptAnalysis{Summary: "ok"}
	if _, err := h.service.EnqueueTranscript(ctx, transcript.TranscriptID, tracker.SystemActor()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	h.service.Wait()

	stored, err = h.repo.GetTranscript(ctx, transcript.TranscriptID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if stored.ProcessingStatus != string(tracker.ProcessingCompleted) {
		t.Fatalf("status after retry = %q, want completed", stored.ProcessingStatus)
	}
}

func TestEnqueueTranscriptRejectsBusyTranscript(t *testing.T) {
	h := newHarness(t)
	transcript, err := h.repo.CreateTranscript(context.Background(), ports.TranscriptCreate{
		ProjectID:        h.project.ProjectID,
		Title:            "Standup",
		Content:          "notes",
		ProcessingStatus: string(tracker.ProcessingProcessing),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	_, err = h.service.EnqueueTranscript(context.Background(), transcript.TranscriptID, tracker.SystemActor())
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("err = %v, want ErrAnalysisInProgress", err)
	}
}

func TestEnqueueCommitLifecycle(t *testing.T) {
	h := newHarness(t)
	commit := h.seedCommit(t)
	h.analyzer.commit = tracker.CommitAnalysis{Summary: "adds session refresh", Complexity: "low"}

	ctx := context.Background()
	jobID, err := h.service.EnqueueCommit(ctx, commit.CommitID, tracker.UserActor(9))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if jobID == "" {
		t.Fatal("missing job id")
	}
	h.service.Wait()

	stored, err := h.repo.GetCommit(ctx, commit.CommitID)
	if err != nil {
		t.Fatalf("get commit: %v", err)
	}
	if stored.AnalysisStatus == nil || *stored.AnalysisStatus != string(tracker.ProcessingCompleted) {
		t.Fatalf("analysis status = %v, want completed", stored.AnalysisStatus)
	}
	if stored.AnalysisJSON == nil {
		t.Fatal("missing analysis payload")
	}
	if got := h.notifier.ofType(ports.EventCodeAnalysisComplete); got != 1 {
		t.Fatalf("completion events = %d, want 1", got)
	}

	logs, err := h.repo.ListAuditLogs(ctx, h.project.ProjectID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(logs))
	}
	if logs[0].UserID == nil || *logs[0].UserID != 9 {
		t.Fatalf("audit actor = %v, want user 9", logs[0].UserID)
	}
}

func TestEnqueueCommitFailure(t *testing.T) {
	h := newHarness(t)
	commit := h.seedCommit(t)
	h.analyzer.err = errors.New("provider unavailable")

	if _, err := h.service.EnqueueCommit(context.Background(), commit.CommitID, tracker.SystemActor()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	h.service.Wait()

	stored, err := h.repo.GetCommit(context.Background(), commit.CommitID)
	if err != nil {
		t.Fatalf("get commit: %v", err)
	}
	if stored.AnalysisStatus == nil || *stored.AnalysisStatus != string(tracker.ProcessingFailed) {
		t.Fatalf("analysis status = %v, want failed", stored.AnalysisStatus)
	}
	if stored.AnalysisJSON != nil {
		t.Fatal("failed analysis must not leave a payload")
	}
	if got := h.notifier.ofType(ports.EventCodeAnalysisFailed); got != 1 {
		t.Fatalf("failure events = %d, want 1", got)
	}
}

func TestEnqueueCommitRejectsBusyCommit(t *testing.T) {
	h := newHarness(t)
	commit := h.seedCommit(t)
	pending := string(tracker.ProcessingPending)
	if err := h.repo.UpdateCommitAnalysis(context.Background(), commit.CommitID, pending, nil); err != nil {
		t.Fatalf("mark pending: %v", err)
	}

	_, err := h.service.EnqueueCommit(context.Background(), commit.CommitID, tracker.SystemActor())
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("err = %v, want ErrAnalysisInProgress", err)
	}
}

func TestEnqueuePullRequestLifecycle(t *testing.T) {
	h := newHarness(t)
	h.analyzer.pr = tracker.PRAnalysis{Summary: "introduces the login flow"}

	ctx := context.Background()
	pr, _, err := h.repo.CreatePullRequest(ctx, ports.PullRequestCreate{
		ProjectID:   h.project.ProjectID,
		Number:      42,
		Title:       "Add login flow",
		State:       "open",
		AuthorLogin: "dev",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed pr: %v", err)
	}

	if _, err := h.service.EnqueuePullRequest(ctx, pr.PullRequestID, tracker.SystemActor()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	h.service.Wait()

	stored, err := h.repo.GetPullRequest(ctx, pr.PullRequestID)
	if err != nil {
		t.Fatalf("get pr: %v", err)
	}
	if stored.AnalysisStatus == nil || *stored.AnalysisStatus != string(tracker.ProcessingCompleted) {
		t.Fatalf("analysis status = %v, want completed", stored.AnalysisStatus)
	}
	if stored.AnalysisJSON == nil {
		t.Fatal("missing analysis payload")
	}
}

func TestTicketPrefix(t *testing.T) {
	cases := []struct {
		project string
		want    string
	}{
		{"Webapp", "WEBA"},
		{"Webapp Redesign", "WEBA"},
		{"ops", "OPS"},
		{"", "TASK"},
		{"42 things", "TASK"},
	}
	for _, tc := range cases {
		if got := ticketPrefix(tc.project); got != tc.want {
			t.Errorf("ticketPrefix(%q) = %q, want %q", tc.project, got, tc.want)
		}
	}
}
