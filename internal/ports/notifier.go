package ports

import "context"

// Notification event types pushed to live subscribers.
const (
	EventTranscriptCompleted  = "transcript_analysis_completed"
	EventTranscriptFailed     = "transcript_analysis_failed"
	EventCodeAnalysisComplete = "code_analysis_completed"
	EventCodeAnalysisFailed   = "code_analysis_failed"
	EventTicketCompleted      = "ticket_completed"
)

// NotifyEvent is the fan-out envelope. Payload must be JSON-marshalable.
type NotifyEvent struct {
	Type    string
	Payload any
}

// Notifier pushes completion events to live UI subscribers. Publishing is a
// secondary concern: callers log failures and move on, so implementations
// should fail fast rather than block.
type Notifier interface {
	Publish(ctx context.Context, event NotifyEvent) error
}
