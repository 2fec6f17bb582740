package model

// The (project_id, name) unique index is the branch's natural key and the
// sole idempotency mechanism for repeated webhook deliveries.
type Branch struct {
	BranchID    uint64 `gorm:"column:branch_id;primaryKey;autoIncrement"`
	ProjectID   uint64 `gorm:"column:project_id;not null;uniqueIndex:idx_branches_project_name"`
	Name        string `gorm:"column:name;type:text;not null;uniqueIndex:idx_branches_project_name"`
	URL         string `gorm:"column:url;type:text;not null"`
	Author      string `gorm:"column:author;type:text;not null"`
	AuthorEmail string `gorm:"column:author_email;type:text;not null"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null"`
}

func (Branch) TableName() string {
	return "branches"
}
