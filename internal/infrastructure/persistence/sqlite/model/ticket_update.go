package model

// TicketUpdate records a lifecycle-status transition; append-only.
type TicketUpdate struct {
	TicketUpdateID uint64 `gorm:"column:ticket_update_id;primaryKey;autoIncrement"`
	TicketID       uint64 `gorm:"column:ticket_id;not null;index"`
	FromStatus     string `gorm:"column:from_status;type:text;not null"`
	ToStatus       string `gorm:"column:to_status;type:text;not null"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null"`
}

func (TicketUpdate) TableName() string {
	return "ticket_updates"
}
