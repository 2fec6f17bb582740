package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// HandlePullRequest processes a pull_request delivery: upserts the PR by
// (project, number), refreshing mutable fields on redelivery, and when a
// merged PR closes it completes the linked ticket. The ticket transition and
// the PR upsert commit together; a redelivered merge event finds the ticket
// already done and changes nothing.
func (s *Service) HandlePullRequest(ctx context.Context, event PullRequestEvent) error {
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pull_request_handler"),
		slog.String("repository", event.Repository.FullName),
		slog.Int("number", event.PullRequest.Number),
		slog.String("action", event.Action),
	)

	project, ok, err := s.resolveProject(ctx, event.Repository.FullName)
	if err != nil {
		return errs.Wrap(err, "resolve project")
	}
	if !ok {
		return nil
	}

	pr := event.PullRequest
	branch, err := s.upsertBranch(ctx, project.ProjectID, pr.Head.Ref,
		event.Repository.HTMLURL, pr.User.Login, pr.User.Email)
	if err != nil {
		return err
	}

	ticketID, ticketName, err := s.resolveTicketLink(ctx, project.ProjectID, pr.Title+"\n"+pr.Body)
	if err != nil {
		return errs.Wrap(err, "resolve ticket link")
	}

	state := pr.State
	if pr.Draft {
		state = "draft"
	}

	branchID := branch.BranchID
	var completedTicket *ports.Ticket
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.upsertPullRequest(txCtx, project.ProjectID, branchID, ticketID, pr, state); err != nil {
			return err
		}

		if !(event.Action == "closed" && pr.Merged && ticketID != nil) {
			return nil
		}
		ticket, err := s.repo.GetTicket(txCtx, *ticketID)
		if err != nil {
			return errs.Wrap(err, "load linked ticket")
		}
		if !tracker.TicketStatus(ticket.Status).IsOpen() {
			return nil
		}

		now := s.nowUTCString()
		if err := s.repo.UpdateTicketStatus(txCtx, ticket.TicketID, string(tracker.TicketStatusDone), now); err != nil {
			return errs.Wrap(err, "complete ticket")
		}
		if err := s.repo.CreateTicketUpdate(txCtx, ports.TicketUpdateCreate{
			TicketID:   ticket.TicketID,
			FromStatus: ticket.Status,
			ToStatus:   string(tracker.TicketStatusDone),
			CreatedAt:  now,
		}); err != nil {
			return errs.Wrap(err, "record ticket transition")
		}
		ticket.Status = string(tracker.TicketStatusDone)
		completedTicket = &ticket
		return nil
	})
	if err != nil {
		return errs.Wrap(err, "persist pull request")
	}

	s.recorder.Record(ctx, project.ProjectID,
		fmt.Sprintf("PR #%d %s", pr.Number, actionSummary(event.Action, pr.Merged)),
		prAuditDescription(pr, ticketName),
		tracker.SystemActor())

	if completedTicket != nil {
		s.recorder.Record(ctx, project.ProjectID,
			"Ticket "+completedTicket.Name+" completed",
			fmt.Sprintf("Completed automatically by merge of PR #%d", pr.Number),
			tracker.SystemActor())

		if err := s.notifier.Publish(ctx, ports.NotifyEvent{
			Type: ports.EventTicketCompleted,
			Payload: map[string]any{
				"ticketId":   completedTicket.TicketID,
				"ticketName": completedTicket.Name,
				"projectId":  project.ProjectID,
				"prNumber":   pr.Number,
			},
		}); err != nil {
			logging.Warn(ctx, "ticket completion notify failed",
				slog.Any("err", errs.Loggable(err)))
		}
	}
	return nil
}

// upsertPullRequest creates the PR or refreshes its mutable fields. A lost
// create race falls through to the update path.
func (s *Service) upsertPullRequest(ctx context.Context, projectID, branchID uint64, ticketID *uint64, pr PRInfo, state string) (ports.PullRequest, error) {
	now := s.nowUTCString()

	existing, err := s.repo.FindPullRequestByNumber(ctx, projectID, pr.Number)
	if err != nil && !errors.Is(err, ports.ErrPullRequestNotFound) {
		return ports.PullRequest{}, errs.Wrap(err, "find pull request")
	}

	if errors.Is(err, ports.ErrPullRequestNotFound) {
		created, inserted, err := s.repo.CreatePullRequest(ctx, ports.PullRequestCreate{
			ProjectID:    projectID,
			BranchID:     &branchID,
			TicketID:     ticketID,
			Number:       pr.Number,
			Title:        pr.Title,
			Body:         pr.Body,
			State:        state,
			Merged:       pr.Merged,
			Additions:    pr.Additions,
			Deletions:    pr.Deletions,
			ChangedFiles: pr.ChangedFiles,
			AuthorLogin:  pr.User.Login,
			URL:          pr.HTMLURL,
			CreatedAt:    now,
		})
		if err != nil {
			return ports.PullRequest{}, errs.Wrap(err, "create pull request")
		}
		if inserted {
			return created, nil
		}
		existing = created
	}

	update := ports.PullRequestUpdate{
		BranchID:     &branchID,
		TicketID:     ticketID,
		Title:        pr.Title,
		Body:         pr.Body,
		State:        state,
		Merged:       pr.Merged,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		UpdatedAt:    now,
	}
	if err := s.repo.UpdatePullRequest(ctx, existing.PullRequestID, update); err != nil {
		return ports.PullRequest{}, errs.Wrap(err, "update pull request")
	}
	return s.repo.GetPullRequest(ctx, existing.PullRequestID)
}

func actionSummary(action string, merged bool) string {
	switch action {
	case "opened":
		return "opened"
	case "closed":
		if merged {
			return "merged"
		}
		return "closed"
	case "reopened":
		return "reopened"
	case "ready_for_review":
		return "marked ready for review"
	case "converted_to_draft":
		return "converted to draft"
	default:
		return "updated"
	}
}

func prAuditDescription(pr PRInfo, ticketName string) string {
	desc := firstLine(pr.Title)
	if ticketName != "" {
		desc += fmt.Sprintf(" (ticket %s)", ticketName)
	}
	return desc
}
