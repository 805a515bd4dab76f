package bots

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// Channel identifies one streamer channel on a provider.
type Channel struct {
	ID                uuid.UUID
	ProviderChannelID string
}

// ChatSource is the provider-specific chat API surface. Implementations
// wrap the provider HTTP client and its pagination cursor format.
type ChatSource interface {
	Provider() enums.Provider
	ActiveChannels(ctx context.Context) ([]Channel, error)
	FetchMessages(ctx context.Context, channel Channel, cursor string) (messages [][]byte, nextCursor string, err error)
}

// MessageHandler consumes one raw chat payload for a channel. Handlers
// swallow their own errors so one bad message never stops the poll.
type MessageHandler interface {
	HandleMessage(ctx context.Context, channelID uuid.UUID, raw []byte)
}

// channelState is the runner-owned in-memory state for one channel.
type channelState struct {
	cursor     string
	polling    bool
	lastPollAt time.Time
}

// Runner polls a provider's chat for every active channel on a fixed
// cadence. Each channel has a single-flight guard: if a poll is still
// running when the ticker fires again, that channel is skipped for the
// cycle instead of stacking concurrent polls.
type Runner struct {
	source   ChatSource
	handler  MessageHandler
	logg     *logger.Logger
	interval time.Duration
	parallel int

	mu    sync.Mutex
	state map[uuid.UUID]*channelState
}

type RunnerParams struct {
	Source  ChatSource
	Handler MessageHandler
	Logger  *logger.Logger
	Bots    config.BotsConfig
}

// NewRunner builds a poll loop for one provider.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("chat source required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("message handler required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Runner{
		source:   params.Source,
		handler:  params.Handler,
		logg:     params.Logger,
		interval: params.Bots.PollEvery(),
		parallel: params.Bots.Parallelism(),
		state:    make(map[uuid.UUID]*channelState),
	}, nil
}

// Run polls until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := r.logg.WithProvider(ctx, string(r.source.Provider()))
	r.logg.Info(logCtx, "bot runner starting")

	r.pollOnce(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(logCtx, "bot runner context canceled")
			return ctx.Err()
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

// pollOnce fans one poll cycle out over the active channels, bounded by
// the configured parallelism.
func (r *Runner) pollOnce(ctx context.Context) {
	channels, err := r.source.ActiveChannels(ctx)
	if err != nil {
		r.logg.Error(r.logg.WithProvider(ctx, string(r.source.Provider())), "listing active channels failed", err)
		return
	}

	sem := make(chan struct{}, r.parallel)
	var wg sync.WaitGroup
	for _, channel := range channels {
		if !r.beginPoll(channel.ID) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ch Channel) {
			defer wg.Done()
			defer func() { <-sem }()
			defer r.endPoll(ch.ID)
			r.pollChannel(ctx, ch)
		}(channel)
	}
	wg.Wait()
	r.forgetInactive(channels)
}

func (r *Runner) pollChannel(ctx context.Context, channel Channel) {
	cursor := r.cursorFor(channel.ID)
	messages, nextCursor, err := r.source.FetchMessages(ctx, channel, cursor)
	if err != nil {
		logCtx := r.logg.WithProvider(ctx, string(r.source.Provider()))
		logCtx = r.logg.WithChannelID(logCtx, channel.ID.String())
		r.logg.Warn(logCtx, "chat fetch failed, will retry next cycle")
		return
	}
	for _, raw := range messages {
		r.handler.HandleMessage(ctx, channel.ID, raw)
	}
	r.advanceCursor(channel.ID, nextCursor)
}

// beginPoll flips the channel's single-flight guard. False means a
// previous poll is still in flight.
func (r *Runner) beginPoll(channelID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[channelID]
	if !ok {
		st = &channelState{}
		r.state[channelID] = st
	}
	if st.polling {
		return false
	}
	st.polling = true
	return true
}

func (r *Runner) endPoll(channelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.state[channelID]; ok {
		st.polling = false
		st.lastPollAt = time.Now()
	}
}

func (r *Runner) cursorFor(channelID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.state[channelID]; ok {
		return st.cursor
	}
	return ""
}

func (r *Runner) advanceCursor(channelID uuid.UUID, cursor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.state[channelID]; ok {
		st.cursor = cursor
	}
}

// forgetInactive drops state for channels no longer returned by the
// source so the map does not grow without bound.
func (r *Runner) forgetInactive(active []Channel) {
	keep := make(map[uuid.UUID]struct{}, len(active))
	for _, channel := range active {
		keep[channel.ID] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range r.state {
		if _, ok := keep[id]; !ok && !st.polling {
			delete(r.state, id)
		}
	}
}
