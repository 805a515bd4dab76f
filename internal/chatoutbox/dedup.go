package chatoutbox

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"github.com/memalerts/memalerts-backend/pkg/redis"
)

// Deduper suppresses duplicate outbound chat messages inside a sliding
// window, scoped per (platform, channel). Redis-backed when a client is
// available; falls back to an in-process map otherwise, which is good
// enough for a single instance.
type Deduper struct {
	rdb    *redis.Client
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewDeduper builds a deduper with the given window. A nil redis client
// selects the in-process fallback.
func NewDeduper(rdb *redis.Client, window time.Duration) *Deduper {
	return &Deduper{
		rdb:    rdb,
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// BodyHash returns the stable digest used to key message bodies.
func BodyHash(body string) string {
	sum := sha1.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// FirstSeen reports whether the body is new for the channel within the
// window. True means the caller should go ahead and enqueue the message.
func (d *Deduper) FirstSeen(ctx context.Context, platform, channelID, body string) (bool, error) {
	hash := BodyHash(body)
	if d.rdb != nil {
		key := d.rdb.DedupKey(platform, channelID, hash)
		return d.rdb.SetNX(ctx, key, "1", d.window)
	}
	return d.firstSeenLocal(platform + ":" + channelID + ":" + hash), nil
}

func (d *Deduper) firstSeenLocal(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now.Add(d.window)
	return true
}
