package model

type Member struct {
	MemberID  uint64 `gorm:"column:member_id;primaryKey;autoIncrement"`
	ProjectID uint64 `gorm:"column:project_id;not null;index"`
	Name      string `gorm:"column:name;type:text;not null"`
	Role      string `gorm:"column:role;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Member) TableName() string {
	return "members"
}
