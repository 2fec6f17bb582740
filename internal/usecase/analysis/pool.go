package analysis

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
)

// Pool bounds concurrent analysis jobs with a semaphore. Jobs detach from the
// submitting request's cancellation so an HTTP client going away does not
// abort a half-finished provider call; logging attributes carry over.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: make(chan struct{}, workers)}
}

// Submit schedules fn and returns its job id immediately.
func (p *Pool) Submit(ctx context.Context, name string, fn func(ctx context.Context)) string {
	jobID := uuid.NewString()
	jobCtx := logging.WithAttrs(context.WithoutCancel(ctx),
		slog.String("job", name),
		slog.String("job_id", jobID),
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		logging.Info(jobCtx, "analysis job started")
		fn(jobCtx)
		logging.Info(jobCtx, "analysis job finished")
	}()
	return jobID
}

// Wait blocks until every submitted job has finished. Used on shutdown and by
// tests to synchronize with background work.
func (p *Pool) Wait() {
	p.wg.Wait()
}
