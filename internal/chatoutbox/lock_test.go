package chatoutbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelLocker_LocalExclusive(t *testing.T) {
	l := NewChannelLocker(nil, 15*time.Second)
	ctx := context.Background()

	token, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	second, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	assert.Empty(t, second, "lock is held")

	other, err := l.Acquire(ctx, "twitch", "chan-2")
	require.NoError(t, err)
	assert.NotEmpty(t, other, "channels lock independently")
}

func TestChannelLocker_ReleaseAllowsReacquire(t *testing.T) {
	l := NewChannelLocker(nil, 15*time.Second)
	ctx := context.Background()

	token, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, l.Release(ctx, "twitch", "chan-1", token))

	again, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}

func TestChannelLocker_StaleTokenCannotRelease(t *testing.T) {
	l := NewChannelLocker(nil, 15*time.Second)
	current := time.Now()
	l.now = func() time.Time { return current }
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	require.NotEmpty(t, stale)

	// TTL expires; another owner takes the lock.
	current = current.Add(16 * time.Second)
	fresh, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	require.NotEmpty(t, fresh)

	// The original holder's release must not free the new owner's lock.
	require.NoError(t, l.Release(ctx, "twitch", "chan-1", stale))
	blocked, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

func TestChannelLocker_ExpiredLockIsReacquirable(t *testing.T) {
	l := NewChannelLocker(nil, 15*time.Second)
	current := time.Now()
	l.now = func() time.Time { return current }
	ctx := context.Background()

	token, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	current = current.Add(20 * time.Second)
	again, err := l.Acquire(ctx, "twitch", "chan-1")
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}
