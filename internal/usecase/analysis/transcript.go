package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// IngestTranscript stores a raw meeting transcript and immediately enqueues
// its analysis. Returns the stored transcript and the job id.
func (s *Service) IngestTranscript(ctx context.Context, projectID uint64, title, content string, actor tracker.Actor) (ports.Transcript, string, error) {
	if strings.TrimSpace(content) == "" {
		return ports.Transcript{}, "", errors.New("transcript content is required")
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return ports.Transcript{}, "", errs.Wrap(err, "load project")
	}

	transcript, err := s.repo.CreateTranscript(ctx, ports.TranscriptCreate{
		ProjectID:        projectID,
		Title:            title,
		Content:          content,
		ProcessingStatus: string(tracker.ProcessingPending),
		CreatedAt:        s.nowUTCString(),
	})
	if err != nil {
		return ports.Transcript{}, "", errs.Wrap(err, "store transcript")
	}

	jobID := s.pool.Submit(ctx, "transcript_analysis", func(jobCtx context.Context) {
		s.processTranscript(jobCtx, transcript.TranscriptID, actor)
	})
	return transcript, jobID, nil
}

// EnqueueTranscript re-runs analysis for a stored transcript. Pending and
// processing transcripts reject the enqueue; completed and failed ones start
// over.
func (s *Service) EnqueueTranscript(ctx context.Context, transcriptID uint64, actor tracker.Actor) (string, error) {
	ok, err := s.repo.MarkTranscriptPending(ctx, transcriptID, s.nowUTCString())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAnalysisInProgress
	}

	jobID := s.pool.Submit(ctx, "transcript_analysis", func(jobCtx context.Context) {
		s.processTranscript(jobCtx, transcriptID, actor)
	})
	return jobID, nil
}

func (s *Service) processTranscript(ctx context.Context, transcriptID uint64, actor tracker.Actor) {
	ctx = logging.WithAttrs(ctx, slog.Uint64("transcript_id", transcriptID))

	if err := s.repo.UpdateTranscriptStatus(ctx, transcriptID, string(tracker.ProcessingProcessing), nil, s.nowUTCString()); err != nil {
		logging.Error(ctx, "mark transcript processing failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	transcript, err := s.repo.GetTranscript(ctx, transcriptID)
	if err != nil {
		logging.Error(ctx, "load transcript failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	result, err := s.analyzer.AnalyzeTranscript(ctx, transcript.Content)
	if err != nil {
		s.failTranscript(ctx, transcript, err)
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.failTranscript(ctx, transcript, errs.Wrap(err, "encode result"))
		return
	}

	created, err := s.completeTranscript(ctx, transcript, string(resultJSON), result)
	if err != nil {
		s.failTranscript(ctx, transcript, err)
		return
	}

	s.recorder.Record(ctx, transcript.ProjectID,
		"Transcript analyzed",
		fmt.Sprintf("%s: %d tickets suggested", summaryLine(transcript.Title), len(created)),
		actor)

	names := make([]string, 0, len(created))
	for _, ticket := range created {
		s.recorder.Record(ctx, transcript.ProjectID,
			"Ticket "+ticket.Name+" suggested",
			fmt.Sprintf("%s (from transcript %q)", ticket.Title, summaryLine(transcript.Title)),
			actor)
		names = append(names, ticket.Name)
	}
	s.publish(ctx, ports.EventTranscriptCompleted, map[string]any{
		"transcriptId": transcript.TranscriptID,
		"projectId":    transcript.ProjectID,
		"tickets":      names,
	})
}

func (s *Service) failTranscript(ctx context.Context, transcript ports.Transcript, cause error) {
	logging.Error(ctx, "transcript analysis failed", slog.Any("err", errs.Loggable(cause)))

	if err := s.repo.UpdateTranscriptStatus(ctx, transcript.TranscriptID, string(tracker.ProcessingFailed), nil, s.nowUTCString()); err != nil {
		logging.Error(ctx, "mark transcript failed errored", slog.Any("err", errs.Loggable(err)))
	}
	s.publish(ctx, ports.EventTranscriptFailed, map[string]any{
		"transcriptId": transcript.TranscriptID,
		"projectId":    transcript.ProjectID,
		"error":        cause.Error(),
	})
}

// completeTranscript commits the result payload and the suggested tickets in
// one transaction. Tickets enter the moderation queue as pending; they only
// reach default listings after a human approves them.
func (s *Service) completeTranscript(ctx context.Context, transcript ports.Transcript, resultJSON string, result tracker.TranscriptAnalysis) ([]ports.Ticket, error) {
	members, err := s.memberLoads(ctx, transcript.ProjectID)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.GetProject(ctx, transcript.ProjectID)
	if err != nil {
		return nil, errs.Wrap(err, "load project")
	}

	existing, err := s.repo.ListTickets(ctx, transcript.ProjectID, ports.TicketFilter{Moderation: "all"})
	if err != nil {
		return nil, errs.Wrap(err, "count tickets")
	}

	aliases := s.profiles.RoleAliases()
	prefix := ticketPrefix(project.Name)
	now := s.nowUTCString()

	var created []ports.Ticket
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateTranscriptStatus(txCtx, transcript.TranscriptID, string(tracker.ProcessingCompleted), &resultJSON, now); err != nil {
			return errs.Wrap(err, "mark transcript completed")
		}

		transcriptID := transcript.TranscriptID
		seq := len(existing)
		for _, item := range result.ActionItems {
			seq++

			var assigneeID *uint64
			if suggested, ok := tracker.SuggestAssignee(members, item.Role, aliases); ok {
				id := suggested.MemberID
				assigneeID = &id
			}

			priority := strings.ToLower(strings.TrimSpace(item.Priority))
			if priority == "" {
				priority = "medium"
			}

			ticket, err := s.repo.CreateTicket(txCtx, ports.TicketCreate{
				ProjectID:    transcript.ProjectID,
				TranscriptID: &transcriptID,
				AssigneeID:   assigneeID,
				Name:         fmt.Sprintf("%s-%d", prefix, seq),
				Title:        item.Title,
				Description:  item.Description,
				Status:       string(tracker.TicketStatusTodo),
				Moderation:   string(tracker.ModerationPending),
				Priority:     priority,
				CreatedAt:    now,
			})
			if err != nil {
				return errs.Wrap(err, "create suggested ticket")
			}
			if err := s.repo.CreateTicketUpdate(txCtx, ports.TicketUpdateCreate{
				TicketID:   ticket.TicketID,
				FromStatus: string(tracker.TicketStatusNone),
				ToStatus:   string(tracker.TicketStatusTodo),
				CreatedAt:  now,
			}); err != nil {
				return errs.Wrap(err, "record ticket transition")
			}
			created = append(created, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) memberLoads(ctx context.Context, projectID uint64) ([]tracker.MemberLoad, error) {
	members, err := s.repo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, errs.Wrap(err, "list members")
	}
	counts, err := s.repo.CountOpenTicketsByMember(ctx, projectID)
	if err != nil {
		return nil, errs.Wrap(err, "count open tickets")
	}

	loads := make([]tracker.MemberLoad, 0, len(members))
	for _, m := range members {
		loads = append(loads, tracker.MemberLoad{
			MemberID:    m.MemberID,
			Name:        m.Name,
			Role:        m.Role,
			OpenTickets: counts[m.MemberID],
		})
	}
	return loads, nil
}

// ticketPrefix derives a ticket name prefix from the project name: the
// leading letters of the first word, uppercased, capped at four. A project
// named "Webapp Redesign" yields WEBA; an unusable name yields TASK.
func ticketPrefix(projectName string) string {
	word := strings.Fields(projectName)
	if len(word) == 0 {
		return "TASK"
	}

	var b strings.Builder
	for _, r := range word[0] {
		if !unicode.IsLetter(r) {
			break
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 4 {
			break
		}
	}
	if b.Len() == 0 {
		return "TASK"
	}
	return b.String()
}
