package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mosaicpm/mosaic/internal/bootstrap/config"
	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/infrastructure/notify"
	"github.com/mosaicpm/mosaic/internal/ports"
	"github.com/mosaicpm/mosaic/internal/usecase/analysis"
	"github.com/mosaicpm/mosaic/internal/usecase/tickets"
	"github.com/mosaicpm/mosaic/internal/usecase/webhook"
)

// Server exposes the HTTP surface: webhook ingestion, analysis triggers, the
// moderation queue, and the live event socket.
type Server struct {
	httpServer *http.Server
	webhooks   *webhook.Service
	analysis   *analysis.Service
	tickets    *tickets.Service
	repo       ports.TrackerRepository
	hub        *notify.WSHub
}

func New(cfg config.HTTPConfig, webhooks *webhook.Service, analysisSvc *analysis.Service, ticketSvc *tickets.Service, repo ports.TrackerRepository, hub *notify.WSHub) *Server {
	s := &Server{
		webhooks: webhooks,
		analysis: analysisSvc,
		tickets:  ticketSvc,
		repo:     repo,
		hub:      hub,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/github/webhook", s.handleWebhookInfo)
		r.Post("/github/webhook", s.handleWebhook)

		r.Post("/projects/{projectID}/transcripts", s.handleIngestTranscript)
		r.Get("/projects/{projectID}/tickets/review", s.handleReviewQueue)
		r.Get("/projects/{projectID}/audit", s.handleAuditLog)

		r.Post("/transcripts/{id}/analyze", s.handleAnalyzeTranscript)
		r.Post("/commits/{id}/analyze", s.handleAnalyzeCommit)
		r.Post("/pulls/{id}/analyze", s.handleAnalyzePullRequest)

		r.Post("/tickets/{id}/approve", s.handleApproveTicket)
		r.Post("/tickets/{id}/reject", s.handleRejectTicket)

		r.Get("/ws", s.hub.ServeWS)
	})
	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start(ctx context.Context) error {
	logging.Info(ctx, "http server listening", slog.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "http server stopped", slog.Any("err", errs.Loggable(err)))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
