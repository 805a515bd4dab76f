package bots

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

const gatewayBodyReadLimit int64 = 1024

// GatewaySource reads chat through the bot gateway's internal API. The
// gateway owns the provider socket connections and buffers messages per
// channel; the runner polls it over plain HTTP.
type GatewaySource struct {
	httpClient *http.Client
	baseURL    string
	platform   enums.Provider
}

// GatewayOption configures optional source behavior.
type GatewayOption func(*GatewaySource)

// WithGatewayHTTPClient overrides the default HTTP client.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(s *GatewaySource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewGatewaySource builds a chat source for one provider.
func NewGatewaySource(baseURL string, platform enums.Provider, opts ...GatewayOption) (*GatewaySource, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("bot gateway base url is required")
	}
	if !platform.IsValid() {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	source := &GatewaySource{
		baseURL:    trimmed,
		platform:   platform,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(source)
		}
	}
	return source, nil
}

func (s *GatewaySource) Provider() enums.Provider {
	return s.platform
}

type gatewayChannel struct {
	ID                uuid.UUID `json:"id"`
	ProviderChannelID string    `json:"providerChannelId"`
}

// ActiveChannels lists the channels the gateway currently holds a chat
// connection for.
func (s *GatewaySource) ActiveChannels(ctx context.Context) ([]Channel, error) {
	endpoint := fmt.Sprintf("%s/internal/chat/%s/channels", s.baseURL, s.platform)
	var resp struct {
		Channels []gatewayChannel `json:"channels"`
	}
	if err := s.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}
	channels := make([]Channel, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		channels = append(channels, Channel{ID: ch.ID, ProviderChannelID: ch.ProviderChannelID})
	}
	return channels, nil
}

// FetchMessages drains buffered messages for one channel from the given
// cursor. Payloads come back base64 wrapped so provider frames survive
// JSON transport untouched.
func (s *GatewaySource) FetchMessages(ctx context.Context, channel Channel, cursor string) ([][]byte, string, error) {
	endpoint := fmt.Sprintf("%s/internal/chat/%s/channels/%s/messages", s.baseURL, s.platform, channel.ID)
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}
	var resp struct {
		Messages []string `json:"messages"`
		Cursor   string   `json:"cursor"`
	}
	if err := s.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, cursor, fmt.Errorf("fetch messages: %w", err)
	}
	messages := make([][]byte, 0, len(resp.Messages))
	for _, encoded := range resp.Messages {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, cursor, fmt.Errorf("decode message payload: %w", err)
		}
		messages = append(messages, raw)
	}
	return messages, resp.Cursor, nil
}

func (s *GatewaySource) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, gatewayBodyReadLimit))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
