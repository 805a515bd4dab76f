package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
)

// RetryDelay is the custom backoff applied to all queues: the fixed
// jittered stage table shared with the chat outbox. asynq counts
// retries from zero, the schedule from attempt one.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(chatoutbox.ComputeBackoffMs(n+1, nil)) * time.Millisecond
}
