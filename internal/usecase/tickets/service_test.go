package tickets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/model"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/repository"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
)

func newService(t *testing.T) (*Service, *repository.TrackerRepository, ports.Project) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "tickets.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.Project{}, &model.Ticket{}, &model.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := repository.NewTrackerRepository(db)
	project, err := repo.CreateProject(context.Background(), ports.ProjectCreate{
		Name:      "Webapp",
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return NewService(repo, audit.NewRecorder(repo)), repo, project
}

func seedPendingTicket(t *testing.T, repo *repository.TrackerRepository, projectID uint64, name string) ports.Ticket {
	t.Helper()
	ticket, err := repo.CreateTicket(context.Background(), ports.TicketCreate{
		ProjectID:  projectID,
		Name:       name,
		Title:      name + " work",
		Status:     string(tracker.TicketStatusTodo),
		Moderation: string(tracker.ModerationPending),
		Priority:   "medium",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}

func TestApproveMakesTicketVisible(t *testing.T) {
	svc, repo, project := newService(t)
	ticket := seedPendingTicket(t, repo, project.ProjectID, "WEBA-1")
	ctx := context.Background()

	approved, err := svc.Approve(ctx, ticket.TicketID, tracker.UserActor(3))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Moderation != string(tracker.ModerationApproved) {
		t.Fatalf("moderation = %q", approved.Moderation)
	}

	visible, err := repo.ListTickets(ctx, project.ProjectID, ports.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("visible = %d, want 1", len(visible))
	}

	logs, err := repo.ListAuditLogs(ctx, project.ProjectID, 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(logs))
	}
	if logs[0].UserID == nil || *logs[0].UserID != 3 {
		t.Fatalf("audit actor = %v, want user 3", logs[0].UserID)
	}
}

func TestRejectKeepsTicketOutOfListings(t *testing.T) {
	svc, repo, project := newService(t)
	ticket := seedPendingTicket(t, repo, project.ProjectID, "WEBA-1")
	ctx := context.Background()

	if _, err := svc.Reject(ctx, ticket.TicketID, tracker.UserActor(3)); err != nil {
		t.Fatalf("reject: %v", err)
	}

	visible, err := repo.ListTickets(ctx, project.ProjectID, ports.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("visible = %d, want 0", len(visible))
	}

	// The record survives for review history.
	stored, err := repo.GetTicket(ctx, ticket.TicketID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Moderation != string(tracker.ModerationRejected) {
		t.Fatalf("moderation = %q", stored.Moderation)
	}
}

func TestModerationIsIdempotent(t *testing.T) {
	svc, repo, project := newService(t)
	ticket := seedPendingTicket(t, repo, project.ProjectID, "WEBA-1")
	ctx := context.Background()

	if _, err := svc.Approve(ctx, ticket.TicketID, tracker.UserActor(3)); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := svc.Approve(ctx, ticket.TicketID, tracker.UserActor(3)); err != nil {
		t.Fatalf("second approve: %v", err)
	}

	logs, err := repo.ListAuditLogs(ctx, project.ProjectID, 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1 after repeat approval", len(logs))
	}
}

func TestModerateMissingTicketFails(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Approve(context.Background(), 9999, tracker.SystemActor())
	if !errors.Is(err, ports.ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestListReviewQueue(t *testing.T) {
	svc, repo, project := newService(t)
	seedPendingTicket(t, repo, project.ProjectID, "WEBA-1")
	approved := seedPendingTicket(t, repo, project.ProjectID, "WEBA-2")
	if _, err := svc.Approve(context.Background(), approved.TicketID, tracker.SystemActor()); err != nil {
		t.Fatalf("approve: %v", err)
	}

	queue, err := svc.ListReviewQueue(context.Background(), project.ProjectID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 1 || queue[0].Name != "WEBA-1" {
		t.Fatalf("queue = %+v, want only WEBA-1", queue)
	}
}
