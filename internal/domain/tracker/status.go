package tracker

// TicketStatus is the work-progress state of a ticket.
type TicketStatus string

const (
	TicketStatusNone       TicketStatus = "none"
	TicketStatusTodo       TicketStatus = "todo"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusDone       TicketStatus = "done"
)

// IsOpen reports whether a ticket in this status still counts toward a
// member's workload.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusTodo || s == TicketStatusInProgress
}

// ModerationStatus gates visibility of AI-suggested tickets. Only approved
// tickets show up in default listings; pending ones sit in the review queue.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ProcessingStatus tracks an asynchronous enrichment job. The only legal
// path is pending -> processing -> completed|failed; failed jobs re-enter at
// processing when retried by the user.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)
