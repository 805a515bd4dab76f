package chatoutbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

const relayBodyReadLimit int64 = 1024

// RelaySender delivers outbox messages through the bot gateway's
// internal send endpoint. The gateway owns the provider chat
// connections; the worker only relays.
type RelaySender struct {
	httpClient *http.Client
	baseURL    string
}

// RelayOption configures optional sender behavior.
type RelayOption func(*RelaySender)

// WithRelayHTTPClient overrides the default HTTP client.
func WithRelayHTTPClient(client *http.Client) RelayOption {
	return func(s *RelaySender) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewRelaySender builds a sender pointed at the bot gateway base URL.
func NewRelaySender(baseURL string, opts ...RelayOption) (*RelaySender, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("chat relay base url is required")
	}
	sender := &RelaySender{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sender)
		}
	}
	return sender, nil
}

type relaySendRequest struct {
	Platform  enums.Provider `json:"platform"`
	ChannelID uuid.UUID      `json:"channelId"`
	Body      string         `json:"body"`
}

// Send posts one message to the gateway. Any non-2xx answer is an
// error so the caller's retry budget applies.
func (s *RelaySender) Send(ctx context.Context, platform enums.Provider, channelID uuid.UUID, body string) error {
	payload, err := json.Marshal(relaySendRequest{Platform: platform, ChannelID: channelID, Body: body})
	if err != nil {
		return fmt.Errorf("marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/internal/chat/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute relay request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, relayBodyReadLimit))
		return fmt.Errorf("relay send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
