package model

type Ticket struct {
	TicketID     uint64  `gorm:"column:ticket_id;primaryKey;autoIncrement"`
	ProjectID    uint64  `gorm:"column:project_id;not null;index"`
	TranscriptID *uint64 `gorm:"column:transcript_id;index"`
	AssigneeID   *uint64 `gorm:"column:assignee_id;index"`
	Name         string  `gorm:"column:name;type:text;not null;index"`
	Title        string  `gorm:"column:title;type:text;not null"`
	Description  string  `gorm:"column:description;type:text;not null"`
	Status       string  `gorm:"column:status;type:text;not null"`
	Moderation   string  `gorm:"column:moderation;type:text;not null"`
	Priority     string  `gorm:"column:priority;type:text;not null;default:''"`
	CreatedAt    string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string  `gorm:"column:updated_at;type:text;not null"`
}

func (Ticket) TableName() string {
	return "tickets"
}
