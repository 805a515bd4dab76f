package channels

import (
	"context"

	"github.com/google/uuid"
)

// LiveStatus reports whether a channel's stream is currently live. The
// implementation is owned by the provider API layer; offline-gated rewards
// consult a snapshot of it before crediting.
type LiveStatus interface {
	IsLive(ctx context.Context, channelID uuid.UUID) (bool, error)
}

// StaticLiveStatus is a fixed-answer LiveStatus used by tests and by callers
// that already hold a snapshot.
type StaticLiveStatus bool

func (s StaticLiveStatus) IsLive(context.Context, uuid.UUID) (bool, error) {
	return bool(s), nil
}
