package chatoutbox

import "errors"

var (
	// errChannelBusy signals the queue to retry once the channel lock frees up.
	errChannelBusy = errors.New("chat outbox channel is locked")
	// errDeliveryFailed signals a retryable send failure to the queue.
	errDeliveryFailed = errors.New("chat outbox delivery failed")
)

// IsRetryable reports whether a worker error should be retried by the
// broker rather than treated as a programming error.
func IsRetryable(err error) bool {
	return errors.Is(err, errChannelBusy) || errors.Is(err, errDeliveryFailed)
}
