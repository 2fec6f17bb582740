package model

type Transcript struct {
	TranscriptID     uint64  `gorm:"column:transcript_id;primaryKey;autoIncrement"`
	ProjectID        uint64  `gorm:"column:project_id;not null;index"`
	Title            string  `gorm:"column:title;type:text;not null"`
	Content          string  `gorm:"column:content;type:text;not null"`
	ProcessingStatus string  `gorm:"column:processing_status;type:text;not null"`
	ResultJSON       *string `gorm:"column:result_json;type:text"`
	CreatedAt        string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt        string  `gorm:"column:updated_at;type:text;not null"`
}

func (Transcript) TableName() string {
	return "transcripts"
}
