package model

type Project struct {
	ProjectID uint64  `gorm:"column:project_id;primaryKey;autoIncrement"`
	Name      string  `gorm:"column:name;type:text;not null"`
	RepoName  *string `gorm:"column:repo_name;type:text;index"`
	RepoURL   *string `gorm:"column:repo_url;type:text"`
	CreatedAt string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt string  `gorm:"column:updated_at;type:text;not null"`
}

func (Project) TableName() string {
	return "projects"
}
