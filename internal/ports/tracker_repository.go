package ports

import (
	"context"
	"errors"
)

var (
	ErrProjectNotFound     = errors.New("project not found")
	ErrBranchNotFound      = errors.New("branch not found")
	ErrCommitNotFound      = errors.New("commit not found")
	ErrPullRequestNotFound = errors.New("pull request not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTranscriptNotFound  = errors.New("transcript not found")
)

type Project struct {
	ProjectID uint64
	Name      string
	RepoName  *string
	RepoURL   *string
	CreatedAt string
	UpdatedAt string
}

type Member struct {
	MemberID  uint64
	ProjectID uint64
	Name      string
	Role      string
	CreatedAt string
}

type Branch struct {
	BranchID    uint64
	ProjectID   uint64
	Name        string
	URL         string
	Author      string
	AuthorEmail string
	CreatedAt   string
}

type BranchCreate struct {
	ProjectID   uint64
	Name        string
	URL         string
	Author      string
	AuthorEmail string
	CreatedAt   string
}

type Commit struct {
	CommitID       uint64
	ProjectID      uint64
	BranchID       *uint64
	PullRequestID  *uint64
	TicketID       *uint64
	SHA            string
	Message        string
	Author         string
	AuthorEmail    string
	URL            string
	Additions      int
	Deletions      int
	AnalysisStatus *string
	AnalysisJSON   *string
	CreatedAt      string
}

type CommitCreate struct {
	ProjectID   uint64
	BranchID    *uint64
	TicketID    *uint64
	SHA         string
	Message     string
	Author      string
	AuthorEmail string
	URL         string
	Additions   int
	Deletions   int
	CreatedAt   string
}

type PullRequest struct {
	PullRequestID  uint64
	ProjectID      uint64
	BranchID       *uint64
	TicketID       *uint64
	Number         int
	Title          string
	Body           string
	State          string
	Merged         bool
	Additions      int
	Deletions      int
	ChangedFiles   int
	AuthorLogin    string
	URL            string
	AnalysisStatus *string
	AnalysisJSON   *string
	CreatedAt      string
	UpdatedAt      string
}

type PullRequestCreate struct {
	ProjectID    uint64
	BranchID     *uint64
	TicketID     *uint64
	Number       int
	Title        string
	Body         string
	State        string
	Merged       bool
	Additions    int
	Deletions    int
	ChangedFiles int
	AuthorLogin  string
	URL          string
	CreatedAt    string
}

// PullRequestUpdate carries the fields refreshed on every delivery. The
// natural key (project, number) never changes.
type PullRequestUpdate struct {
	BranchID     *uint64
	TicketID     *uint64
	Title        string
	Body         string
	State        string
	Merged       bool
	Additions    int
	Deletions    int
	ChangedFiles int
	UpdatedAt    string
}

type Ticket struct {
	TicketID     uint64
	ProjectID    uint64
	TranscriptID *uint64
	AssigneeID   *uint64
	Name         string
	Title        string
	Description  string
	Status       string
	Moderation   string
	Priority     string
	CreatedAt    string
	UpdatedAt    string
}

type TicketCreate struct {
	ProjectID    uint64
	TranscriptID *uint64
	AssigneeID   *uint64
	Name         string
	Title        string
	Description  string
	Status       string
	Moderation   string
	Priority     string
	CreatedAt    string
}

// TicketFilter narrows listings. Moderation empty means the default view
// (approved only); "all" disables the moderation gate.
type TicketFilter struct {
	Moderation string
	Status     string
}

type Transcript struct {
	TranscriptID     uint64
	ProjectID        uint64
	Title            string
	Content          string
	ProcessingStatus string
	ResultJSON       *string
	CreatedAt        string
	UpdatedAt        string
}

type TranscriptCreate struct {
	ProjectID        uint64
	Title            string
	Content          string
	ProcessingStatus string
	CreatedAt        string
}

type AuditLog struct {
	AuditLogID  uint64
	ProjectID   uint64
	UserID      *uint64
	Header      string
	Description string
	CreatedAt   string
}

type AuditLogCreate struct {
	ProjectID   uint64
	UserID      *uint64
	Header      string
	Description string
	CreatedAt   string
}

type TicketUpdate struct {
	TicketUpdateID uint64
	TicketID       uint64
	FromStatus     string
	ToStatus       string
	CreatedAt      string
}

type TicketUpdateCreate struct {
	TicketID   uint64
	FromStatus string
	ToStatus   string
	CreatedAt  string
}

type ProjectCreate struct {
	Name      string
	RepoName  *string
	RepoURL   *string
	CreatedAt string
}

type MemberCreate struct {
	ProjectID uint64
	Name      string
	Role      string
	CreatedAt string
}

// TrackerRepository is the persistence contract for the correlation engine:
// find-by-natural-key, create, and targeted updates per entity. Creates for
// entities with natural keys report whether a row was inserted so callers can
// treat a lost create race as success.
type TrackerRepository interface {
	// Projects and members.
	CreateProject(ctx context.Context, input ProjectCreate) (Project, error)
	GetProject(ctx context.Context, projectID uint64) (Project, error)
	FindProjectsByRepo(ctx context.Context, fullName string) ([]Project, error)
	CreateMember(ctx context.Context, input MemberCreate) (Member, error)
	ListMembers(ctx context.Context, projectID uint64) ([]Member, error)
	CountOpenTicketsByMember(ctx context.Context, projectID uint64) (map[uint64]int, error)

	// Branches, keyed by (project, name).
	FindBranch(ctx context.Context, projectID uint64, name string) (Branch, error)
	CreateBranch(ctx context.Context, input BranchCreate) (Branch, bool, error)

	// Commits, keyed by (project, sha).
	GetCommit(ctx context.Context, commitID uint64) (Commit, error)
	FindCommitBySHA(ctx context.Context, projectID uint64, sha string) (Commit, error)
	CreateCommit(ctx context.Context, input CommitCreate) (Commit, bool, error)
	UpdateCommitAnalysis(ctx context.Context, commitID uint64, status string, resultJSON *string) error
	// MarkCommitAnalysisPending sets the analysis state to pending and clears
	// the payload in one conditional write; it reports false without writing
	// when an analysis is already pending or processing.
	MarkCommitAnalysisPending(ctx context.Context, commitID uint64) (bool, error)

	// Pull requests, keyed by (project, number).
	GetPullRequest(ctx context.Context, pullRequestID uint64) (PullRequest, error)
	FindPullRequestByNumber(ctx context.Context, projectID uint64, number int) (PullRequest, error)
	CreatePullRequest(ctx context.Context, input PullRequestCreate) (PullRequest, bool, error)
	UpdatePullRequest(ctx context.Context, pullRequestID uint64, input PullRequestUpdate) error
	UpdatePullRequestAnalysis(ctx context.Context, pullRequestID uint64, status string, resultJSON *string) error
	MarkPullRequestAnalysisPending(ctx context.Context, pullRequestID uint64) (bool, error)

	// Tickets.
	GetTicket(ctx context.Context, ticketID uint64) (Ticket, error)
	FindTicketByName(ctx context.Context, projectID uint64, name string) (Ticket, error)
	ListTickets(ctx context.Context, projectID uint64, filter TicketFilter) ([]Ticket, error)
	CreateTicket(ctx context.Context, input TicketCreate) (Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID uint64, status string, updatedAt string) error
	UpdateTicketModeration(ctx context.Context, ticketID uint64, moderation string, updatedAt string) error

	// Transcripts.
	GetTranscript(ctx context.Context, transcriptID uint64) (Transcript, error)
	CreateTranscript(ctx context.Context, input TranscriptCreate) (Transcript, error)
	UpdateTranscriptStatus(ctx context.Context, transcriptID uint64, status string, resultJSON *string, updatedAt string) error
	MarkTranscriptPending(ctx context.Context, transcriptID uint64, updatedAt string) (bool, error)

	// Append-only records.
	AppendAuditLog(ctx context.Context, input AuditLogCreate) error
	ListAuditLogs(ctx context.Context, projectID uint64, limit int) ([]AuditLog, error)
	CreateTicketUpdate(ctx context.Context, input TicketUpdateCreate) error
	ListTicketUpdates(ctx context.Context, ticketID uint64) ([]TicketUpdate, error)
}
