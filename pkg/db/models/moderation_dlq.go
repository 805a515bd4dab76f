package models

import (
	"time"

	"github.com/google/uuid"
)

// ModerationDLQ captures terminal AI moderation job failures for inspection and
// replay. Repeated failures of the same submission produce distinct rows.
type ModerationDLQ struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubmissionID uuid.UUID `gorm:"column:submission_id;type:uuid;not null;index"`
	JobID        string    `gorm:"column:job_id;not null"`
	ErrorMessage *string   `gorm:"column:error_message"`
	AttemptsMade int       `gorm:"column:attempts_made;not null;default:0"`
	FailedAt     time.Time `gorm:"column:failed_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ModerationDLQ) TableName() string { return "moderation_dlq" }
