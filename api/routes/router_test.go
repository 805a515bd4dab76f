package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	kickwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/kick"
	twitchwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/twitch"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubResolver struct {
	channels map[string]uuid.UUID
}

func (s stubResolver) ResolveChannelID(_ context.Context, _ enums.Provider, providerChannelID string) (uuid.UUID, bool, error) {
	id, ok := s.channels[providerChannelID]
	return id, ok, nil
}

func testRouterParams(t *testing.T) RouterParams {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"

	twitchVerifier, err := twitchwebhook.NewVerifier("tw-secret")
	if err != nil {
		t.Fatalf("twitch verifier: %v", err)
	}
	kickVerifier, err := kickwebhook.NewVerifier("kick-secret")
	if err != nil {
		t.Fatalf("kick verifier: %v", err)
	}

	return RouterParams{
		Config:          cfg,
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
		DB:              stubPinger{},
		Redis:           stubPinger{},
		TwitchVerifier:  twitchVerifier,
		KickVerifier:    kickVerifier,
		ChannelResolver: stubResolver{channels: map[string]uuid.UUID{"tw-1": uuid.New(), "kick-1": uuid.New()}},
		TwitchHandler:   func(context.Context, uuid.UUID, []byte) {},
		KickHandler:     func(context.Context, uuid.UUID, []byte) {},
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testRouterParams(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-MemAlerts-Env") != "test" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReadyFailsWhenDatabaseDown(t *testing.T) {
	params := testRouterParams(t)
	params.DB = stubPinger{err: errors.New("connection refused")}
	router := NewRouter(params)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code == http.StatusOK {
		t.Fatalf("expected readiness failure, got 200")
	}
}

func TestHealthReadySkipsNilRedis(t *testing.T) {
	params := testRouterParams(t)
	params.Redis = nil
	router := NewRouter(params)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without redis, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := NewRouter(testRouterParams(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTwitchWebhookRouteWired(t *testing.T) {
	router := NewRouter(testRouterParams(t))

	body := `{"challenge":"ok","subscription":{"type":"channel.channel_points_custom_reward_redemption.add"}}`
	messageID := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	mac := hmac.New(sha256.New, []byte("tw-secret"))
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(body))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/twitch", strings.NewReader(body))
	req.Header.Set(twitchwebhook.HeaderMessageID, messageID)
	req.Header.Set(twitchwebhook.HeaderMessageTimestamp, timestamp)
	req.Header.Set(twitchwebhook.HeaderMessageSignature, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set(twitchwebhook.HeaderMessageType, twitchwebhook.MessageTypeVerification)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected challenge echo, got %q", rec.Body.String())
	}
}

type stubLinker struct {
	got     accounts.LinkInput
	updates []rewards.WalletUpdate
}

func (s *stubLinker) LinkAccount(_ context.Context, input accounts.LinkInput) ([]rewards.WalletUpdate, error) {
	s.got = input
	return s.updates, nil
}

func TestAccountLinkRouteSweepsGrants(t *testing.T) {
	userID := uuid.New()
	linker := &stubLinker{
		updates: []rewards.WalletUpdate{{UserID: userID, ChannelID: uuid.New(), Balance: 40, Delta: 40}},
	}
	params := testRouterParams(t)
	params.AccountLinker = linker
	router := NewRouter(params)

	body := `{"userId":"` + userID.String() + `","provider":"trovo","providerAccountId":"tr-77"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/accounts/link", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if linker.got.UserID != userID || linker.got.Provider != enums.ProviderTrovo || linker.got.ProviderAccountID != "tr-77" {
		t.Fatalf("link input mismatch: %+v", linker.got)
	}
	if !strings.Contains(rec.Body.String(), `"balance":40`) {
		t.Fatalf("expected wallet update in response, got %s", rec.Body.String())
	}
}

func TestAccountLinkRouteAbsentWithoutService(t *testing.T) {
	router := NewRouter(testRouterParams(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/accounts/link", strings.NewReader("{}")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without link service, got %d", rec.Code)
	}
}

func TestUnconfiguredProviderRouteAbsent(t *testing.T) {
	params := testRouterParams(t)
	params.KickVerifier = nil
	router := NewRouter(params)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/kick", strings.NewReader("{}")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unconfigured provider, got %d", rec.Code)
	}
}
