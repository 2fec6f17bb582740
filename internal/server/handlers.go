package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/analysis"
	"github.com/mosaicpm/mosaic/internal/usecase/webhook"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// actorFrom reads the acting user from the x-user-id header. Absent or
// unparsable headers fall back to the system actor.
func actorFrom(r *http.Request) tracker.Actor {
	raw := r.Header.Get("x-user-id")
	if raw == "" {
		return tracker.SystemActor()
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return tracker.SystemActor()
	}
	return tracker.UserActor(id)
}

func pathID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (s *Server) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "mosaic github webhook",
		"events":    []string{"push", "pull_request", "ping"},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWebhook dispatches a GitHub delivery by event header. Degraded paths
// (unknown repository, unsupported event) still answer 200 so GitHub does not
// disable the hook; only processing failures surface as 500.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-GitHub-Event")
	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	ctx := logging.WithAttrs(r.Context(),
		slog.String("event", eventType),
		slog.String("delivery_id", deliveryID),
	)

	var err error
	switch eventType {
	case "push":
		var event webhook.PushEvent
		if err = json.NewDecoder(r.Body).Decode(&event); err != nil {
			err = errs.Wrap(err, "decode push payload")
			break
		}
		err = s.webhooks.HandlePush(ctx, event)
	case "pull_request":
		var event webhook.PullRequestEvent
		if err = json.NewDecoder(r.Body).Decode(&event); err != nil {
			err = errs.Wrap(err, "decode pull_request payload")
			break
		}
		err = s.webhooks.HandlePullRequest(ctx, event)
	case "ping":
		// GitHub's hook test. Nothing to do.
	default:
		logging.Info(ctx, "unsupported webhook event, acknowledging")
	}

	if err != nil {
		logging.Error(ctx, "webhook processing failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleIngestTranscript(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	transcript, jobID, err := s.analysis.IngestTranscript(r.Context(), projectID, body.Title, body.Content, actorFrom(r))
	if err != nil {
		if errors.Is(err, ports.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"transcriptId": transcript.TranscriptID,
		"jobId":        jobID,
		"status":       transcript.ProcessingStatus,
	})
}

func (s *Server) handleAnalyzeTranscript(w http.ResponseWriter, r *http.Request) {
	s.handleEnqueue(w, r, "transcript not found", func(id uint64) (string, error) {
		return s.analysis.EnqueueTranscript(r.Context(), id, actorFrom(r))
	})
}

func (s *Server) handleAnalyzeCommit(w http.ResponseWriter, r *http.Request) {
	s.handleEnqueue(w, r, "commit not found", func(id uint64) (string, error) {
		return s.analysis.EnqueueCommit(r.Context(), id, actorFrom(r))
	})
}

func (s *Server) handleAnalyzePullRequest(w http.ResponseWriter, r *http.Request) {
	s.handleEnqueue(w, r, "pull request not found", func(id uint64) (string, error) {
		return s.analysis.EnqueuePullRequest(r.Context(), id, actorFrom(r))
	})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request, notFoundMsg string, enqueue func(id uint64) (string, error)) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	jobID, err := enqueue(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID, "status": string(tracker.ProcessingPending)})
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		writeError(w, http.StatusConflict, "analysis already in progress")
	case errors.Is(err, ports.ErrTranscriptNotFound),
		errors.Is(err, ports.ErrCommitNotFound),
		errors.Is(err, ports.ErrPullRequestNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		logging.Error(r.Context(), "enqueue failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "enqueue failed")
	}
}

func (s *Server) handleApproveTicket(w http.ResponseWriter, r *http.Request) {
	s.handleModeration(w, r, s.tickets.Approve)
}

func (s *Server) handleRejectTicket(w http.ResponseWriter, r *http.Request) {
	s.handleModeration(w, r, s.tickets.Reject)
}

func (s *Server) handleModeration(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id uint64, actor tracker.Actor) (ports.Ticket, error)) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, err := decide(r.Context(), id, actorFrom(r))
	if err != nil {
		if errors.Is(err, ports.ErrTicketNotFound) {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		logging.Error(r.Context(), "moderation failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "moderation failed")
		return
	}
	writeJSON(w, http.StatusOK, ticketResponse(ticket))
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	queue, err := s.tickets.ListReviewQueue(r.Context(), projectID)
	if err != nil {
		logging.Error(r.Context(), "review queue failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "review queue failed")
		return
	}

	out := make([]map[string]any, 0, len(queue))
	for _, ticket := range queue {
		out = append(out, ticketResponse(ticket))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": out})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	logs, err := s.repo.ListAuditLogs(r.Context(), projectID, limit)
	if err != nil {
		logging.Error(r.Context(), "audit listing failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, "audit listing failed")
		return
	}

	out := make([]map[string]any, 0, len(logs))
	for _, entry := range logs {
		out = append(out, map[string]any{
			"id":          entry.AuditLogID,
			"userId":      entry.UserID,
			"header":      entry.Header,
			"description": entry.Description,
			"createdAt":   entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func ticketResponse(ticket ports.Ticket) map[string]any {
	return map[string]any{
		"id":         ticket.TicketID,
		"name":       ticket.Name,
		"title":      ticket.Title,
		"status":     ticket.Status,
		"moderation": ticket.Moderation,
		"priority":   ticket.Priority,
		"assigneeId": ticket.AssigneeID,
	}
}
