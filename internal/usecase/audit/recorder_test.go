package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/ports"
)

type auditRepoStub struct {
	ports.TrackerRepository

	entries []ports.AuditLogCreate
	fail    bool
}

func (s *auditRepoStub) AppendAuditLog(_ context.Context, input ports.AuditLogCreate) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.entries = append(s.entries, input)
	return nil
}

func TestRecordStoresSystemActorAsNullUser(t *testing.T) {
	repo := &auditRepoStub{}
	recorder := NewRecorder(repo)
	recorder.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	recorder.Record(context.Background(), 1, "Push received", "2 commits on main", tracker.SystemActor())

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].UserID != nil {
		t.Fatalf("system actor should persist as null user, got %v", *repo.entries[0].UserID)
	}
}

func TestRecordStoresUserActor(t *testing.T) {
	repo := &auditRepoStub{}
	recorder := NewRecorder(repo)

	recorder.Record(context.Background(), 1, "Ticket approved", "AUTH-7 approved", tracker.UserActor(42))

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.entries[0].UserID == nil || *repo.entries[0].UserID != 42 {
		t.Fatalf("user id = %v, want 42", repo.entries[0].UserID)
	}
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	recorder := NewRecorder(&auditRepoStub{fail: true})

	// Must not panic or propagate; the primary operation goes on.
	recorder.Record(context.Background(), 1, "Push received", "details", tracker.SystemActor())
}
