package model

// AuditLog rows are append-only; a null user_id means the system actor.
type AuditLog struct {
	AuditLogID  uint64  `gorm:"column:audit_log_id;primaryKey;autoIncrement"`
	ProjectID   uint64  `gorm:"column:project_id;not null;index"`
	UserID      *uint64 `gorm:"column:user_id"`
	Header      string  `gorm:"column:header;type:text;not null"`
	Description string  `gorm:"column:description;type:text;not null"`
	CreatedAt   string  `gorm:"column:created_at;type:text;not null;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
