package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/infrastructure/persistence/sqlite/model"
	"github.com/mosaicpm/mosaic/internal/ports"
)

// TrackerRepository implements ports.TrackerRepository on gorm/sqlite.
//
// Creates keyed by a natural composite index use ON CONFLICT DO NOTHING and
// re-read on zero rows affected, so two concurrent deliveries of the same
// webhook never surface a uniqueness violation to the caller.
type TrackerRepository struct {
	db *gorm.DB
}

var _ ports.TrackerRepository = (*TrackerRepository)(nil)

func NewTrackerRepository(db *gorm.DB) *TrackerRepository {
	return &TrackerRepository{db: db}
}

func (r *TrackerRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// --- projects ---

func (r *TrackerRepository) CreateProject(ctx context.Context, input ports.ProjectCreate) (ports.Project, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Project{}, err
	}

	row := model.Project{
		Name:      input.Name,
		RepoName:  input.RepoName,
		RepoURL:   input.RepoURL,
		CreatedAt: input.CreatedAt,
		UpdatedAt: input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Project{}, errs.Wrap(err, "create project")
	}
	return mapProject(row), nil
}

func (r *TrackerRepository) GetProject(ctx context.Context, projectID uint64) (ports.Project, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Project{}, err
	}

	var row model.Project
	if err := db.Where("project_id = ?", projectID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Project{}, ports.ErrProjectNotFound
		}
		return ports.Project{}, errs.Wrap(err, "query project")
	}
	return mapProject(row), nil
}

// FindProjectsByRepo matches a stored repo name exactly, or a stored repo URL
// containing the full name (users paste full URLs instead of owner/repo).
func (r *TrackerRepository) FindProjectsByRepo(ctx context.Context, fullName string) ([]ports.Project, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return nil, errors.New("repository full name is required")
	}

	var rows []model.Project
	if err := db.
		Where("repo_name = ? OR (repo_url IS NOT NULL AND repo_url LIKE ?)", trimmed, "%"+trimmed+"%").
		Order("project_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query projects by repo")
	}

	items := make([]ports.Project, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapProject(row))
	}
	return items, nil
}

// --- members ---

func (r *TrackerRepository) CreateMember(ctx context.Context, input ports.MemberCreate) (ports.Member, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Member{}, err
	}

	row := model.Member{
		ProjectID: input.ProjectID,
		Name:      input.Name,
		Role:      input.Role,
		CreatedAt: input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Member{}, errs.Wrap(err, "create member")
	}
	return mapMember(row), nil
}

func (r *TrackerRepository) ListMembers(ctx context.Context, projectID uint64) ([]ports.Member, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Member
	if err := db.Where("project_id = ?", projectID).Order("member_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query members")
	}

	items := make([]ports.Member, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMember(row))
	}
	return items, nil
}

// CountOpenTicketsByMember returns assignee_id -> count of tickets in todo or
// in_progress. Members with no open tickets are absent from the map.
func (r *TrackerRepository) CountOpenTicketsByMember(ctx context.Context, projectID uint64) (map[uint64]int, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	type loadRow struct {
		AssigneeID uint64
		Total      int
	}
	var rows []loadRow
	if err := db.Model(&model.Ticket{}).
		Select("assignee_id, count(*) as total").
		Where("project_id = ? AND assignee_id IS NOT NULL AND status IN ?", projectID, []string{"todo", "in_progress"}).
		Group("assignee_id").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count open tickets by member")
	}

	out := make(map[uint64]int, len(rows))
	for _, row := range rows {
		out[row.AssigneeID] = row.Total
	}
	return out, nil
}

// --- branches ---

func (r *TrackerRepository) FindBranch(ctx context.Context, projectID uint64, name string) (ports.Branch, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Branch{}, err
	}

	var row model.Branch
	if err := db.Where("project_id = ? AND name = ?", projectID, name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Branch{}, ports.ErrBranchNotFound
		}
		return ports.Branch{}, errs.Wrap(err, "query branch")
	}
	return mapBranch(row), nil
}

func (r *TrackerRepository) CreateBranch(ctx context.Context, input ports.BranchCreate) (ports.Branch, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Branch{}, false, err
	}

	row := model.Branch{
		ProjectID:   input.ProjectID,
		Name:        input.Name,
		URL:         input.URL,
		Author:      input.Author,
		AuthorEmail: input.AuthorEmail,
		CreatedAt:   input.CreatedAt,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.Branch{}, false, errs.Wrap(result.Error, "create branch")
	}
	if result.RowsAffected == 0 {
		existing, findErr := r.FindBranch(ctx, input.ProjectID, input.Name)
		if findErr != nil {
			return ports.Branch{}, false, errs.Wrap(findErr, "re-read branch after conflict")
		}
		return existing, false, nil
	}
	return mapBranch(row), true, nil
}

// --- commits ---

func (r *TrackerRepository) GetCommit(ctx context.Context, commitID uint64) (ports.Commit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Commit{}, err
	}

	var row model.Commit
	if err := db.Where("commit_id = ?", commitID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Commit{}, ports.ErrCommitNotFound
		}
		return ports.Commit{}, errs.Wrap(err, "query commit")
	}
	return mapCommit(row), nil
}

func (r *TrackerRepository) FindCommitBySHA(ctx context.Context, projectID uint64, sha string) (ports.Commit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Commit{}, err
	}

	var row model.Commit
	if err := db.Where("project_id = ? AND sha = ?", projectID, sha).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Commit{}, ports.ErrCommitNotFound
		}
		return ports.Commit{}, errs.Wrap(err, "query commit by sha")
	}
	return mapCommit(row), nil
}

func (r *TrackerRepository) CreateCommit(ctx context.Context, input ports.CommitCreate) (ports.Commit, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Commit{}, false, err
	}

	row := model.Commit{
		ProjectID:   input.ProjectID,
		SHA:         input.SHA,
		BranchID:    input.BranchID,
		TicketID:    input.TicketID,
		Message:     input.Message,
		Author:      input.Author,
		AuthorEmail: input.AuthorEmail,
		URL:         input.URL,
		Additions:   input.Additions,
		Deletions:   input.Deletions,
		CreatedAt:   input.CreatedAt,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "sha"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.Commit{}, false, errs.Wrap(result.Error, "create commit")
	}
	if result.RowsAffected == 0 {
		existing, findErr := r.FindCommitBySHA(ctx, input.ProjectID, input.SHA)
		if findErr != nil {
			return ports.Commit{}, false, errs.Wrap(findErr, "re-read commit after conflict")
		}
		return existing, false, nil
	}
	return mapCommit(row), true, nil
}

func (r *TrackerRepository) UpdateCommitAnalysis(ctx context.Context, commitID uint64, status string, resultJSON *string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Commit{}).
		Where("commit_id = ?", commitID).
		Updates(map[string]any{
			"analysis_status": status,
			"analysis_json":   resultJSON,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update commit analysis")
	}
	if result.RowsAffected == 0 {
		return ports.ErrCommitNotFound
	}
	return nil
}

// MarkCommitAnalysisPending takes the pending slot with a single guarded
// UPDATE so two concurrent triggers cannot both win.
func (r *TrackerRepository) MarkCommitAnalysisPending(ctx context.Context, commitID uint64) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Commit{}).
		Where("commit_id = ? AND (analysis_status IS NULL OR analysis_status NOT IN ?)",
			commitID, []string{"pending", "processing"}).
		Updates(map[string]any{
			"analysis_status": "pending",
			"analysis_json":   nil,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "mark commit analysis pending")
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Zero rows means either a busy analysis or a missing commit.
	var count int64
	if err := db.Model(&model.Commit{}).Where("commit_id = ?", commitID).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "mark commit analysis pending")
	}
	if count == 0 {
		return false, ports.ErrCommitNotFound
	}
	return false, nil
}

// --- pull requests ---

func (r *TrackerRepository) GetPullRequest(ctx context.Context, pullRequestID uint64) (ports.PullRequest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.PullRequest{}, err
	}

	var row model.PullRequest
	if err := db.Where("pull_request_id = ?", pullRequestID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequest{}, ports.ErrPullRequestNotFound
		}
		return ports.PullRequest{}, errs.Wrap(err, "query pull request")
	}
	return mapPullRequest(row), nil
}

func (r *TrackerRepository) FindPullRequestByNumber(ctx context.Context, projectID uint64, number int) (ports.PullRequest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.PullRequest{}, err
	}

	var row model.PullRequest
	if err := db.Where("project_id = ? AND number = ?", projectID, number).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequest{}, ports.ErrPullRequestNotFound
		}
		return ports.PullRequest{}, errs.Wrap(err, "query pull request by number")
	}
	return mapPullRequest(row), nil
}

func (r *TrackerRepository) CreatePullRequest(ctx context.Context, input ports.PullRequestCreate) (ports.PullRequest, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.PullRequest{}, false, err
	}

	row := model.PullRequest{
		ProjectID:    input.ProjectID,
		Number:       input.Number,
		BranchID:     input.BranchID,
		TicketID:     input.TicketID,
		Title:        input.Title,
		Body:         input.Body,
		State:        input.State,
		Merged:       input.Merged,
		Additions:    input.Additions,
		Deletions:    input.Deletions,
		ChangedFiles: input.ChangedFiles,
		AuthorLogin:  input.AuthorLogin,
		URL:          input.URL,
		CreatedAt:    input.CreatedAt,
		UpdatedAt:    input.CreatedAt,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "number"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.PullRequest{}, false, errs.Wrap(result.Error, "create pull request")
	}
	if result.RowsAffected == 0 {
		existing, findErr := r.FindPullRequestByNumber(ctx, input.ProjectID, input.Number)
		if findErr != nil {
			return ports.PullRequest{}, false, errs.Wrap(findErr, "re-read pull request after conflict")
		}
		return existing, false, nil
	}
	return mapPullRequest(row), true, nil
}

func (r *TrackerRepository) UpdatePullRequest(ctx context.Context, pullRequestID uint64, input ports.PullRequestUpdate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.PullRequest{}).
		Where("pull_request_id = ?", pullRequestID).
		Updates(map[string]any{
			"branch_id":     input.BranchID,
			"ticket_id":     input.TicketID,
			"title":         input.Title,
			"body":          input.Body,
			"state":         input.State,
			"merged":        input.Merged,
			"additions":     input.Additions,
			"deletions":     input.Deletions,
			"changed_files": input.ChangedFiles,
			"updated_at":    input.UpdatedAt,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update pull request")
	}
	if result.RowsAffected == 0 {
		return ports.ErrPullRequestNotFound
	}
	return nil
}

func (r *TrackerRepository) UpdatePullRequestAnalysis(ctx context.Context, pullRequestID uint64, status string, resultJSON *string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.PullRequest{}).
		Where("pull_request_id = ?", pullRequestID).
		Updates(map[string]any{
			"analysis_status": status,
			"analysis_json":   resultJSON,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update pull request analysis")
	}
	if result.RowsAffected == 0 {
		return ports.ErrPullRequestNotFound
	}
	return nil
}

func (r *TrackerRepository) MarkPullRequestAnalysisPending(ctx context.Context, pullRequestID uint64) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.PullRequest{}).
		Where("pull_request_id = ? AND (analysis_status IS NULL OR analysis_status NOT IN ?)",
			pullRequestID, []string{"pending", "processing"}).
		Updates(map[string]any{
			"analysis_status": "pending",
			"analysis_json":   nil,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "mark pull request analysis pending")
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&model.PullRequest{}).Where("pull_request_id = ?", pullRequestID).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "mark pull request analysis pending")
	}
	if count == 0 {
		return false, ports.ErrPullRequestNotFound
	}
	return false, nil
}

// --- tickets ---

func (r *TrackerRepository) GetTicket(ctx context.Context, ticketID uint64) (ports.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Ticket{}, err
	}

	var row model.Ticket
	if err := db.Where("ticket_id = ?", ticketID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Ticket{}, ports.ErrTicketNotFound
		}
		return ports.Ticket{}, errs.Wrap(err, "query ticket")
	}
	return mapTicket(row), nil
}

// FindTicketByName is case-insensitive within the project. Multiple matches
// resolve to the lowest ticket id so linkage is deterministic.
func (r *TrackerRepository) FindTicketByName(ctx context.Context, projectID uint64, name string) (ports.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Ticket{}, err
	}

	var row model.Ticket
	if err := db.
		Where("project_id = ? AND name COLLATE NOCASE = ?", projectID, name).
		Order("ticket_id asc").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Ticket{}, ports.ErrTicketNotFound
		}
		return ports.Ticket{}, errs.Wrap(err, "query ticket by name")
	}
	return mapTicket(row), nil
}

// ListTickets applies the moderation gate: an empty filter shows approved
// tickets only, "pending" is the review queue, "all" disables the gate.
func (r *TrackerRepository) ListTickets(ctx context.Context, projectID uint64, filter ports.TicketFilter) ([]ports.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Ticket{}).Where("project_id = ?", projectID)
	switch filter.Moderation {
	case "all":
	case "":
		query = query.Where("moderation = ?", "approved")
	default:
		query = query.Where("moderation = ?", filter.Moderation)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var rows []model.Ticket
	if err := query.Order("ticket_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query tickets")
	}

	items := make([]ports.Ticket, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTicket(row))
	}
	return items, nil
}

func (r *TrackerRepository) CreateTicket(ctx context.Context, input ports.TicketCreate) (ports.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Ticket{}, err
	}

	row := model.Ticket{
		ProjectID:    input.ProjectID,
		TranscriptID: input.TranscriptID,
		AssigneeID:   input.AssigneeID,
		Name:         input.Name,
		Title:        input.Title,
		Description:  input.Description,
		Status:       input.Status,
		Moderation:   input.Moderation,
		Priority:     input.Priority,
		CreatedAt:    input.CreatedAt,
		UpdatedAt:    input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Ticket{}, errs.Wrap(err, "create ticket")
	}
	return mapTicket(row), nil
}

func (r *TrackerRepository) UpdateTicketStatus(ctx context.Context, ticketID uint64, status string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Updates(map[string]any{"status": status, "updated_at": updatedAt})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update ticket status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrTicketNotFound
	}
	return nil
}

func (r *TrackerRepository) UpdateTicketModeration(ctx context.Context, ticketID uint64, moderation string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Updates(map[string]any{"moderation": moderation, "updated_at": updatedAt})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update ticket moderation")
	}
	if result.RowsAffected == 0 {
		return ports.ErrTicketNotFound
	}
	return nil
}

// --- transcripts ---

func (r *TrackerRepository) GetTranscript(ctx context.Context, transcriptID uint64) (ports.Transcript, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Transcript{}, err
	}

	var row model.Transcript
	if err := db.Where("transcript_id = ?", transcriptID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Transcript{}, ports.ErrTranscriptNotFound
		}
		return ports.Transcript{}, errs.Wrap(err, "query transcript")
	}
	return mapTranscript(row), nil
}

func (r *TrackerRepository) CreateTranscript(ctx context.Context, input ports.TranscriptCreate) (ports.Transcript, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Transcript{}, err
	}

	row := model.Transcript{
		ProjectID:        input.ProjectID,
		Title:            input.Title,
		Content:          input.Content,
		ProcessingStatus: input.ProcessingStatus,
		CreatedAt:        input.CreatedAt,
		UpdatedAt:        input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Transcript{}, errs.Wrap(err, "create transcript")
	}
	return mapTranscript(row), nil
}

func (r *TrackerRepository) UpdateTranscriptStatus(ctx context.Context, transcriptID uint64, status string, resultJSON *string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Transcript{}).
		Where("transcript_id = ?", transcriptID).
		Updates(map[string]any{
			"processing_status": status,
			"result_json":       resultJSON,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update transcript status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrTranscriptNotFound
	}
	return nil
}

func (r *TrackerRepository) MarkTranscriptPending(ctx context.Context, transcriptID uint64, updatedAt string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Transcript{}).
		Where("transcript_id = ? AND processing_status NOT IN ?",
			transcriptID, []string{"pending", "processing"}).
		Updates(map[string]any{
			"processing_status": "pending",
			"result_json":       nil,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "mark transcript pending")
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&model.Transcript{}).Where("transcript_id = ?", transcriptID).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "mark transcript pending")
	}
	if count == 0 {
		return false, ports.ErrTranscriptNotFound
	}
	return false, nil
}

// --- append-only records ---

func (r *TrackerRepository) AppendAuditLog(ctx context.Context, input ports.AuditLogCreate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.AuditLog{
		ProjectID:   input.ProjectID,
		UserID:      input.UserID,
		Header:      input.Header,
		Description: input.Description,
		CreatedAt:   input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "append audit log")
	}
	return nil
}

func (r *TrackerRepository) ListAuditLogs(ctx context.Context, projectID uint64, limit int) ([]ports.AuditLog, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []model.AuditLog
	if err := db.
		Where("project_id = ?", projectID).
		Order("audit_log_id desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query audit logs")
	}

	items := make([]ports.AuditLog, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.AuditLog{
			AuditLogID:  row.AuditLogID,
			ProjectID:   row.ProjectID,
			UserID:      row.UserID,
			Header:      row.Header,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		})
	}
	return items, nil
}

func (r *TrackerRepository) CreateTicketUpdate(ctx context.Context, input ports.TicketUpdateCreate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.TicketUpdate{
		TicketID:   input.TicketID,
		FromStatus: input.FromStatus,
		ToStatus:   input.ToStatus,
		CreatedAt:  input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "create ticket update")
	}
	return nil
}

func (r *TrackerRepository) ListTicketUpdates(ctx context.Context, ticketID uint64) ([]ports.TicketUpdate, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.TicketUpdate
	if err := db.Where("ticket_id = ?", ticketID).Order("ticket_update_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query ticket updates")
	}

	items := make([]ports.TicketUpdate, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.TicketUpdate{
			TicketUpdateID: row.TicketUpdateID,
			TicketID:       row.TicketID,
			FromStatus:     row.FromStatus,
			ToStatus:       row.ToStatus,
			CreatedAt:      row.CreatedAt,
		})
	}
	return items, nil
}

// --- row mapping ---

func mapProject(row model.Project) ports.Project {
	return ports.Project{
		ProjectID: row.ProjectID,
		Name:      row.Name,
		RepoName:  row.RepoName,
		RepoURL:   row.RepoURL,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapMember(row model.Member) ports.Member {
	return ports.Member{
		MemberID:  row.MemberID,
		ProjectID: row.ProjectID,
		Name:      row.Name,
		Role:      row.Role,
		CreatedAt: row.CreatedAt,
	}
}

func mapBranch(row model.Branch) ports.Branch {
	return ports.Branch{
		BranchID:    row.BranchID,
		ProjectID:   row.ProjectID,
		Name:        row.Name,
		URL:         row.URL,
		Author:      row.Author,
		AuthorEmail: row.AuthorEmail,
		CreatedAt:   row.CreatedAt,
	}
}

func mapCommit(row model.Commit) ports.Commit {
	return ports.Commit{
		CommitID:       row.CommitID,
		ProjectID:      row.ProjectID,
		BranchID:       row.BranchID,
		PullRequestID:  row.PullRequestID,
		TicketID:       row.TicketID,
		SHA:            row.SHA,
		Message:        row.Message,
		Author:         row.Author,
		AuthorEmail:    row.AuthorEmail,
		URL:            row.URL,
		Additions:      row.Additions,
		Deletions:      row.Deletions,
		AnalysisStatus: row.AnalysisStatus,
		AnalysisJSON:   row.AnalysisJSON,
		CreatedAt:      row.CreatedAt,
	}
}

func mapPullRequest(row model.PullRequest) ports.PullRequest {
	return ports.PullRequest{
		PullRequestID:  row.PullRequestID,
		ProjectID:      row.ProjectID,
		BranchID:       row.BranchID,
		TicketID:       row.TicketID,
		Number:         row.Number,
		Title:          row.Title,
		Body:           row.Body,
		State:          row.State,
		Merged:         row.Merged,
		Additions:      row.Additions,
		Deletions:      row.Deletions,
		ChangedFiles:   row.ChangedFiles,
		AuthorLogin:    row.AuthorLogin,
		URL:            row.URL,
		AnalysisStatus: row.AnalysisStatus,
		AnalysisJSON:   row.AnalysisJSON,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func mapTicket(row model.Ticket) ports.Ticket {
	return ports.Ticket{
		TicketID:     row.TicketID,
		ProjectID:    row.ProjectID,
		TranscriptID: row.TranscriptID,
		AssigneeID:   row.AssigneeID,
		Name:         row.Name,
		Title:        row.Title,
		Description:  row.Description,
		Status:       row.Status,
		Moderation:   row.Moderation,
		Priority:     row.Priority,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func mapTranscript(row model.Transcript) ports.Transcript {
	return ports.Transcript{
		TranscriptID:     row.TranscriptID,
		ProjectID:        row.ProjectID,
		Title:            row.Title,
		Content:          row.Content,
		ProcessingStatus: row.ProcessingStatus,
		ResultJSON:       row.ResultJSON,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
