package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// ChannelResolver maps a provider broadcaster account to the streamer's
// channel id. A channel is keyed by the streamer's user id, so resolution
// is a link lookup on the streamer's own account.
type ChannelResolver struct {
	links LinkRepository
}

// NewChannelResolver wires a resolver over the link repository.
func NewChannelResolver(links LinkRepository) (*ChannelResolver, error) {
	if links == nil {
		return nil, fmt.Errorf("link repository required")
	}
	return &ChannelResolver{links: links}, nil
}

// ResolveChannelID returns the channel id for the broadcaster account, or
// found=false when the streamer never linked that provider.
func (r *ChannelResolver) ResolveChannelID(ctx context.Context, provider enums.Provider, providerChannelID string) (uuid.UUID, bool, error) {
	if providerChannelID == "" {
		return uuid.Nil, false, nil
	}
	userID, err := r.links.FindUserID(ctx, provider, providerChannelID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("resolve channel: %w", err)
	}
	if userID == nil {
		return uuid.Nil, false, nil
	}
	return *userID, true, nil
}
