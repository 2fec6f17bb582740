package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/audit"
)

// Service covers the human side of AI-suggested tickets: the moderation
// queue and the approve/reject decisions. Unlike webhook processing, a
// missing ticket here is a hard error because the caller named it directly.
type Service struct {
	repo     ports.TrackerRepository
	recorder *audit.Recorder
	now      func() time.Time
}

func NewService(repo ports.TrackerRepository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder, now: time.Now}
}

// ListReviewQueue returns the project's tickets awaiting moderation.
func (s *Service) ListReviewQueue(ctx context.Context, projectID uint64) ([]ports.Ticket, error) {
	return s.repo.ListTickets(ctx, projectID, ports.TicketFilter{
		Moderation: string(tracker.ModerationPending),
	})
}

// Approve makes a suggested ticket visible in default listings.
func (s *Service) Approve(ctx context.Context, ticketID uint64, actor tracker.Actor) (ports.Ticket, error) {
	return s.moderate(ctx, ticketID, tracker.ModerationApproved, "approved", actor)
}

// Reject removes a suggested ticket from the queue without deleting it; the
// record stays for review history.
func (s *Service) Reject(ctx context.Context, ticketID uint64, actor tracker.Actor) (ports.Ticket, error) {
	return s.moderate(ctx, ticketID, tracker.ModerationRejected, "rejected", actor)
}

func (s *Service) moderate(ctx context.Context, ticketID uint64, decision tracker.ModerationStatus, verb string, actor tracker.Actor) (ports.Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return ports.Ticket{}, err
	}
	if ticket.Moderation == string(decision) {
		return ticket, nil
	}

	if err := s.repo.UpdateTicketModeration(ctx, ticketID, string(decision), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return ports.Ticket{}, errs.Wrapf(err, "%s ticket", verb)
	}

	s.recorder.Record(ctx, ticket.ProjectID,
		fmt.Sprintf("Ticket %s %s", ticket.Name, verb),
		ticket.Title,
		actor)

	ticket.Moderation = string(decision)
	return ticket, nil
}
