package bots

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	channels []Channel
	pages    map[uuid.UUID][][]byte
	cursors  map[uuid.UUID]string
	listErr  error
	fetchErr error
	seen     map[uuid.UUID]string
}

func (f *fakeSource) Provider() enums.Provider { return enums.ProviderTrovo }

func (f *fakeSource) ActiveChannels(context.Context) ([]Channel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.channels, nil
}

func (f *fakeSource) FetchMessages(_ context.Context, channel Channel, cursor string) ([][]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, "", f.fetchErr
	}
	if f.seen == nil {
		f.seen = make(map[uuid.UUID]string)
	}
	f.seen[channel.ID] = cursor
	next := ""
	if f.cursors != nil {
		next = f.cursors[channel.ID]
	}
	return f.pages[channel.ID], next, nil
}

type recordingHandler struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]string
}

func (h *recordingHandler) HandleMessage(_ context.Context, channelID uuid.UUID, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages == nil {
		h.messages = make(map[uuid.UUID][]string)
	}
	h.messages[channelID] = append(h.messages[channelID], string(raw))
}

func newTestRunner(t *testing.T, source ChatSource, handler MessageHandler) *Runner {
	t.Helper()
	r, err := NewRunner(RunnerParams{
		Source:  source,
		Handler: handler,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Bots:    config.BotsConfig{},
	})
	require.NoError(t, err)
	return r
}

func TestRunner_PollOnceDeliversInOrder(t *testing.T) {
	channelID := uuid.New()
	source := &fakeSource{
		channels: []Channel{{ID: channelID, ProviderChannelID: "trovo-1"}},
		pages: map[uuid.UUID][][]byte{
			channelID: {[]byte("first"), []byte("second")},
		},
	}
	handler := &recordingHandler{}
	r := newTestRunner(t, source, handler)

	r.pollOnce(context.Background())

	assert.Equal(t, []string{"first", "second"}, handler.messages[channelID])
}

func TestRunner_CursorAdvancesBetweenCycles(t *testing.T) {
	channelID := uuid.New()
	source := &fakeSource{
		channels: []Channel{{ID: channelID}},
		pages:    map[uuid.UUID][][]byte{channelID: {[]byte("m")}},
		cursors:  map[uuid.UUID]string{channelID: "page-2"},
	}
	r := newTestRunner(t, source, &recordingHandler{})

	r.pollOnce(context.Background())
	assert.Equal(t, "", source.seen[channelID], "first cycle starts from empty cursor")

	r.pollOnce(context.Background())
	assert.Equal(t, "page-2", source.seen[channelID], "second cycle resumes from returned cursor")
}

func TestRunner_SingleFlightSkipsBusyChannel(t *testing.T) {
	channelID := uuid.New()
	source := &fakeSource{channels: []Channel{{ID: channelID}}}
	handler := &recordingHandler{}
	r := newTestRunner(t, source, handler)

	require.True(t, r.beginPoll(channelID))
	assert.False(t, r.beginPoll(channelID), "in-flight channel is skipped")

	r.endPoll(channelID)
	assert.True(t, r.beginPoll(channelID))
	r.endPoll(channelID)
}

func TestRunner_FetchErrorDoesNotStopOtherChannels(t *testing.T) {
	healthy := uuid.New()
	source := &fakeSource{
		channels: []Channel{{ID: healthy}},
		pages:    map[uuid.UUID][][]byte{healthy: {[]byte("ok")}},
	}
	handler := &recordingHandler{}
	r := newTestRunner(t, source, handler)

	source.fetchErr = errors.New("provider 500")
	r.pollOnce(context.Background())
	assert.Empty(t, handler.messages)

	source.fetchErr = nil
	r.pollOnce(context.Background())
	assert.Equal(t, []string{"ok"}, handler.messages[healthy])
}

func TestRunner_ForgetsInactiveChannels(t *testing.T) {
	active := uuid.New()
	retired := uuid.New()
	source := &fakeSource{channels: []Channel{{ID: active}, {ID: retired}}}
	r := newTestRunner(t, source, &recordingHandler{})

	r.pollOnce(context.Background())
	assert.Len(t, r.state, 2)

	source.channels = []Channel{{ID: active}}
	r.pollOnce(context.Background())
	assert.Len(t, r.state, 1)
	_, ok := r.state[active]
	assert.True(t, ok)
}
