package enums

// ChatOutboxStatus tracks delivery progress of an outbound chat message.
// Transitions only move forward: pending -> processing -> sent | failed.
type ChatOutboxStatus string

const (
	ChatOutboxPending    ChatOutboxStatus = "pending"
	ChatOutboxProcessing ChatOutboxStatus = "processing"
	ChatOutboxSent       ChatOutboxStatus = "sent"
	ChatOutboxFailed     ChatOutboxStatus = "failed"
)

var chatOutboxRank = map[ChatOutboxStatus]int{
	ChatOutboxPending:    0,
	ChatOutboxProcessing: 1,
	ChatOutboxSent:       2,
	ChatOutboxFailed:     2,
}

// IsValid reports whether the value matches the canonical chat_outbox_status enum.
func (s ChatOutboxStatus) IsValid() bool {
	_, ok := chatOutboxRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a forward transition.
func (s ChatOutboxStatus) CanTransitionTo(next ChatOutboxStatus) bool {
	from, okFrom := chatOutboxRank[s]
	to, okTo := chatOutboxRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to > from
}
