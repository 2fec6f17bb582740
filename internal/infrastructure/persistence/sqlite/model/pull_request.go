package model

type PullRequest struct {
	PullRequestID  uint64  `gorm:"column:pull_request_id;primaryKey;autoIncrement"`
	ProjectID      uint64  `gorm:"column:project_id;not null;uniqueIndex:idx_pulls_project_number"`
	Number         int     `gorm:"column:number;not null;uniqueIndex:idx_pulls_project_number"`
	BranchID       *uint64 `gorm:"column:branch_id;index"`
	TicketID       *uint64 `gorm:"column:ticket_id;index"`
	Title          string  `gorm:"column:title;type:text;not null"`
	Body           string  `gorm:"column:body;type:text;not null"`
	State          string  `gorm:"column:state;type:text;not null"`
	Merged         bool    `gorm:"column:merged;not null;default:0"`
	Additions      int     `gorm:"column:additions;not null;default:0"`
	Deletions      int     `gorm:"column:deletions;not null;default:0"`
	ChangedFiles   int     `gorm:"column:changed_files;not null;default:0"`
	AuthorLogin    string  `gorm:"column:author_login;type:text;not null"`
	URL            string  `gorm:"column:url;type:text;not null"`
	AnalysisStatus *string `gorm:"column:analysis_status;type:text"`
	AnalysisJSON   *string `gorm:"column:analysis_json;type:text"`
	CreatedAt      string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt      string  `gorm:"column:updated_at;type:text;not null"`
}

func (PullRequest) TableName() string {
	return "pull_requests"
}
