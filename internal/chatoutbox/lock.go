package chatoutbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/redis"
)

// releaseScript deletes the lock only when the stored token matches the
// caller's, so an expired lock re-acquired by another worker is never
// released by the original holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// ChannelLocker serializes sends per (platform, channel). Redis-backed
// when a client is available, otherwise an in-process mutex map.
type ChannelLocker struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local map[string]localLock
	now   func() time.Time
}

type localLock struct {
	token   string
	expires time.Time
}

// NewChannelLocker builds a locker with the given lock TTL.
func NewChannelLocker(rdb *redis.Client, ttl time.Duration) *ChannelLocker {
	return &ChannelLocker{
		rdb:   rdb,
		ttl:   ttl,
		local: make(map[string]localLock),
		now:   time.Now,
	}
}

// Acquire takes the channel lock and returns an owner token on success.
// An empty token with nil error means the lock is held elsewhere.
func (l *ChannelLocker) Acquire(ctx context.Context, platform, channelID string) (string, error) {
	token := uuid.NewString()
	if l.rdb != nil {
		key := l.rdb.ChannelLockKey(platform, channelID)
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
		return token, nil
	}
	return l.acquireLocal(platform+":"+channelID, token), nil
}

// Release frees the lock if the token still owns it.
func (l *ChannelLocker) Release(ctx context.Context, platform, channelID, token string) error {
	if token == "" {
		return nil
	}
	if l.rdb != nil {
		key := l.rdb.ChannelLockKey(platform, channelID)
		_, err := l.rdb.Eval(ctx, releaseScript, []string{key}, token)
		return err
	}
	l.releaseLocal(platform+":"+channelID, token)
	return nil
}

func (l *ChannelLocker) acquireLocal(key, token string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.local[key]; ok && now.Before(held.expires) {
		return ""
	}
	l.local[key] = localLock{token: token, expires: now.Add(l.ttl)}
	return token
}

func (l *ChannelLocker) releaseLocal(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.local[key]; ok && held.token == token {
		delete(l.local, key)
	}
}
