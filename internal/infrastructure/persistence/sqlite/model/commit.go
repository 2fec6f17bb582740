package model

type Commit struct {
	CommitID       uint64  `gorm:"column:commit_id;primaryKey;autoIncrement"`
	ProjectID      uint64  `gorm:"column:project_id;not null;uniqueIndex:idx_commits_project_sha"`
	SHA            string  `gorm:"column:sha;type:text;not null;uniqueIndex:idx_commits_project_sha"`
	BranchID       *uint64 `gorm:"column:branch_id;index"`
	PullRequestID  *uint64 `gorm:"column:pull_request_id;index"`
	TicketID       *uint64 `gorm:"column:ticket_id;index"`
	Message        string  `gorm:"column:message;type:text;not null"`
	Author         string  `gorm:"column:author;type:text;not null"`
	AuthorEmail    string  `gorm:"column:author_email;type:text;not null"`
	URL            string  `gorm:"column:url;type:text;not null"`
	Additions      int     `gorm:"column:additions;not null;default:0"`
	Deletions      int     `gorm:"column:deletions;not null;default:0"`
	AnalysisStatus *string `gorm:"column:analysis_status;type:text"`
	AnalysisJSON   *string `gorm:"column:analysis_json;type:text"`
	CreatedAt      string  `gorm:"column:created_at;type:text;not null"`
}

func (Commit) TableName() string {
	return "commits"
}
