package queue

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// Task type names routed to handlers by the worker mux.
const (
	TypeAIModeration = "ai:moderate"
	TypeChatOutbox   = "chat_outbox:send"
	TypeTranscode    = "media:transcode"
)

// Queue names. Chat outbox jobs are separated so a slow provider API
// cannot starve moderation.
const (
	QueueAI         = "ai"
	QueueChatOutbox = "chat_outbox"
	QueueTranscode  = "transcode"
)

// AIModerationPayload carries a submission through the moderation queue.
type AIModerationPayload struct {
	SubmissionID uuid.UUID `json:"submissionId"`
}

// ChatOutboxPayload points a send job at a stored outbox message.
type ChatOutboxPayload struct {
	Platform  enums.Provider `json:"platform"`
	ChannelID uuid.UUID      `json:"channelId"`
	MessageID uuid.UUID      `json:"messageId"`
}

// TranscodePayload carries one format conversion for a media asset.
type TranscodePayload struct {
	Format  string    `json:"format"`
	AssetID uuid.UUID `json:"assetId"`
}

// Deterministic job ids: re-enqueuing an in-flight unit of work is
// rejected by the broker as a duplicate instead of running twice.

func AIModerationJobID(submissionID uuid.UUID) string {
	return fmt.Sprintf("ai-%s", submissionID)
}

func ChatOutboxJobID(platform enums.Provider, messageID uuid.UUID) string {
	return fmt.Sprintf("chatout-%s-%s", platform, messageID)
}

func TranscodeJobID(format string, assetID uuid.UUID) string {
	return fmt.Sprintf("transcode-%s-%s", format, assetID)
}
