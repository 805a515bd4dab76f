package trovo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

func manaRates(perUnit int64) Rates {
	return Rates{ManaCoinsPerUnit: decimal.NewFromInt(perUnit)}
}

func TestExtractSpellFromChat(t *testing.T) {
	msg := ChatMessage{
		Type:        5,
		UID:         "u1",
		Content:     `{"num":3}`,
		ContentData: json.RawMessage(`"mana boost"`),
	}

	intent, ok := ExtractSpellFromChat(msg, manaRates(10))
	if !ok {
		t.Fatal("expected a spell intent")
	}
	if intent.ProviderAccountID != "u1" {
		t.Fatalf("unexpected account id %q", intent.ProviderAccountID)
	}
	if intent.Amount != 3 {
		t.Fatalf("unexpected amount %d", intent.Amount)
	}
	if intent.Currency != enums.CurrencyTrovoMana {
		t.Fatalf("unexpected currency %s", intent.Currency)
	}
	if intent.CoinsToGrant != 30 {
		t.Fatalf("unexpected coins %d", intent.CoinsToGrant)
	}
	if intent.Status != enums.RewardStatusEligible {
		t.Fatalf("unexpected status %s", intent.Status)
	}
}

func TestExtractSpellFromChatNonSpellTypes(t *testing.T) {
	for _, typ := range []int{0, 1, 5008} {
		msg := ChatMessage{Type: typ, UID: "u1"}
		if _, ok := ExtractSpellFromChat(msg, manaRates(10)); ok {
			t.Fatalf("type %d must not extract", typ)
		}
	}
	if _, ok := ExtractSpellFromChat(ChatMessage{Type: 5009, UID: "u1"}, manaRates(10)); !ok {
		t.Fatal("type 5009 must extract")
	}
}

func TestExtractSpellFromChatQuantityDefaults(t *testing.T) {
	for _, content := range []string{"", "not-json", `{"num":0}`, `{"num":-2}`, `{}`} {
		msg := ChatMessage{Type: 5, UID: "u1", Content: content}
		intent, ok := ExtractSpellFromChat(msg, manaRates(10))
		if !ok {
			t.Fatalf("content %q must extract", content)
		}
		if intent.Amount != 1 {
			t.Fatalf("content %q: expected default quantity 1, got %d", content, intent.Amount)
		}
	}
}

func TestExtractSpellFromChatElixirClassification(t *testing.T) {
	msg := ChatMessage{
		Type:        5,
		UID:         "u1",
		Content:     `{"num":2}`,
		ContentData: json.RawMessage(`{"gift":"Elixir Bomb"}`),
	}
	rates := Rates{
		ManaCoinsPerUnit:   decimal.NewFromInt(10),
		ElixirCoinsPerUnit: decimal.NewFromInt(100),
	}

	intent, ok := ExtractSpellFromChat(msg, rates)
	if !ok {
		t.Fatal("expected a spell intent")
	}
	if intent.Currency != enums.CurrencyTrovoElixir {
		t.Fatalf("unexpected currency %s", intent.Currency)
	}
	if intent.CoinsToGrant != 200 {
		t.Fatalf("unexpected coins %d", intent.CoinsToGrant)
	}
}

func TestExtractSpellFromChatUnconfiguredChannel(t *testing.T) {
	msg := ChatMessage{Type: 5, UID: "u1", Content: `{"num":3}`}

	intent, ok := ExtractSpellFromChat(msg, Rates{})
	if !ok {
		t.Fatal("expected a spell intent")
	}
	if intent.Status != enums.RewardStatusIgnored {
		t.Fatalf("unexpected status %s", intent.Status)
	}
	if intent.Reason != ReasonSpellUnconfigured {
		t.Fatalf("unexpected reason %q", intent.Reason)
	}
	if intent.CoinsToGrant != 0 {
		t.Fatalf("unexpected coins %d", intent.CoinsToGrant)
	}
}

func TestExtractSpellFromChatFractionalRateFloors(t *testing.T) {
	msg := ChatMessage{Type: 5, UID: "u1", Content: `{"num":3}`}
	rates := Rates{ManaCoinsPerUnit: decimal.NewFromFloat(2.5)}

	intent, ok := ExtractSpellFromChat(msg, rates)
	if !ok {
		t.Fatal("expected a spell intent")
	}
	if intent.CoinsToGrant != 7 {
		t.Fatalf("expected floor(7.5) = 7, got %d", intent.CoinsToGrant)
	}
}

func TestExtractSpellEventTime(t *testing.T) {
	sec := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	msg := ChatMessage{Type: 5, UID: "u1", SendTime: sec.Unix()}
	intent, _ := ExtractSpellFromChat(msg, manaRates(1))
	if intent.EventAt == nil || !intent.EventAt.Equal(sec) {
		t.Fatalf("epoch seconds not parsed: %v", intent.EventAt)
	}

	msg = ChatMessage{Type: 5, UID: "u1", Timestamp: sec.UnixMilli()}
	intent, _ = ExtractSpellFromChat(msg, manaRates(1))
	if intent.EventAt == nil || !intent.EventAt.Equal(sec) {
		t.Fatalf("epoch millis not parsed: %v", intent.EventAt)
	}

	msg = ChatMessage{Type: 5, UID: "u1"}
	intent, _ = ExtractSpellFromChat(msg, manaRates(1))
	if intent.EventAt != nil {
		t.Fatalf("expected nil event time, got %v", intent.EventAt)
	}
}

func TestDecodeChatMessage(t *testing.T) {
	raw := []byte(`{"type":5,"uid":"u1","content":"{\"num\":3}","content_data":"mana boost","unknown_field":true}`)
	msg, err := DecodeChatMessage(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if msg.Type != 5 || msg.UID != "u1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := DecodeChatMessage([]byte(`{"type":5}`)); err == nil {
		t.Fatal("expected validation error for missing uid")
	}
	if _, err := DecodeChatMessage([]byte(`not-json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
