package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

func setupDLQTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS moderation_dlq (
  id TEXT PRIMARY KEY,
  submission_id TEXT NOT NULL,
  job_id TEXT NOT NULL,
  error_message TEXT,
  attempts_made INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM moderation_dlq").Error)
	return db
}

func TestDLQRepository_RepeatedFailuresAreDistinctRows(t *testing.T) {
	db := setupDLQTestDB(t)
	repo := NewDLQRepository(db)

	submissionID := uuid.New()
	msg := "model timeout"
	for i := 0; i < 2; i++ {
		entry := &models.ModerationDLQ{
			SubmissionID: submissionID,
			JobID:        AIModerationJobID(submissionID),
			ErrorMessage: &msg,
			AttemptsMade: 5,
			FailedAt:     time.Now(),
		}
		require.NoError(t, repo.Create(context.Background(), entry))
	}

	var count int64
	require.NoError(t, db.Table("moderation_dlq").Where("submission_id = ?", submissionID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
