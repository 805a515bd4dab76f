package bots

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// ProcessFunc is a provider reward processor: raw payload in, wallet
// update out when coins were credited, nil otherwise. Processors never
// propagate errors into the poll loop.
type ProcessFunc func(ctx context.Context, channelID uuid.UUID, raw []byte) *rewards.WalletUpdate

// RewardChatHandler feeds chat payloads to a reward processor and, when
// a credit lands, queues a chat acknowledgement through the outbox.
type RewardChatHandler struct {
	platform enums.Provider
	process  ProcessFunc
	producer *chatoutbox.Producer
}

// NewRewardChatHandler builds a handler. The producer may be nil when
// chat acknowledgements are disabled for the platform.
func NewRewardChatHandler(platform enums.Provider, process ProcessFunc, producer *chatoutbox.Producer) *RewardChatHandler {
	return &RewardChatHandler{platform: platform, process: process, producer: producer}
}

func (h *RewardChatHandler) HandleMessage(ctx context.Context, channelID uuid.UUID, raw []byte) {
	update := h.process(ctx, channelID, raw)
	if update == nil || h.producer == nil {
		return
	}
	body := fmt.Sprintf("Coins credited: %d! New balance: %d.", update.Delta, update.Balance)
	// The producer already logs dedup skips and enqueue failure.
	_, _ = h.producer.Enqueue(ctx, h.platform, channelID, body)
}
