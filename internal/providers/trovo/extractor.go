package trovo

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/memalerts/memalerts-backend/internal/providers"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// Chat message types that carry a spell/gift.
const (
	chatTypeSpell       = 5
	chatTypeCustomSpell = 5009
)

// ReasonSpellUnconfigured marks spells on channels with no conversion rate.
const ReasonSpellUnconfigured = "trovo_spell_unconfigured"

// ChatMessage is the subset of a Trovo chat payload the extractor reads.
type ChatMessage struct {
	Type        int             `json:"type"`
	MsgID       string          `json:"msg_id"`
	UID         string          `json:"uid" validate:"required"`
	NickName    string          `json:"nick_name"`
	Content     string          `json:"content"`
	ContentData json.RawMessage `json:"content_data"`
	SendTime    int64           `json:"send_time"`
	Timestamp   int64           `json:"timestamp"`
}

// DecodeChatMessage parses a raw Trovo chat payload.
func DecodeChatMessage(raw []byte) (ChatMessage, error) {
	var msg ChatMessage
	if err := providers.DecodeAndValidate(raw, &msg); err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

// Rates is the per-channel coin conversion configuration for Trovo spells.
type Rates struct {
	ManaCoinsPerUnit   decimal.Decimal
	ElixirCoinsPerUnit decimal.Decimal
}

// SpellIntent is the normalized reward intent extracted from a spell message.
type SpellIntent struct {
	ProviderAccountID string
	Amount            int64
	Currency          enums.RewardCurrency
	CoinsToGrant      int64
	Status            enums.RewardEventStatus
	Reason            string
	EventAt           *time.Time
}

// ExtractSpellFromChat turns a chat message into a reward intent, or reports
// false when the message is not a spell.
func ExtractSpellFromChat(msg ChatMessage, rates Rates) (SpellIntent, bool) {
	if msg.Type != chatTypeSpell && msg.Type != chatTypeCustomSpell {
		return SpellIntent{}, false
	}
	if msg.UID == "" {
		return SpellIntent{}, false
	}

	num := spellQuantity(msg.Content)
	currency := classifyCurrency(msg.ContentData)

	rate := rates.ManaCoinsPerUnit
	if currency == enums.CurrencyTrovoElixir {
		rate = rates.ElixirCoinsPerUnit
	}
	coins := rate.Mul(decimal.NewFromInt(num)).Floor().IntPart()

	intent := SpellIntent{
		ProviderAccountID: msg.UID,
		Amount:            num,
		Currency:          currency,
		CoinsToGrant:      coins,
		Status:            enums.RewardStatusEligible,
		EventAt:           eventTime(msg),
	}
	if coins <= 0 {
		intent.CoinsToGrant = 0
		intent.Status = enums.RewardStatusIgnored
		intent.Reason = ReasonSpellUnconfigured
	}
	return intent, true
}

// spellQuantity reads the gift count from the embedded content JSON,
// defaulting to 1 when absent or malformed.
func spellQuantity(content string) int64 {
	var parsed struct {
		Num int64 `json:"num"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return 1
	}
	if parsed.Num <= 0 {
		return 1
	}
	return parsed.Num
}

// classifyCurrency distinguishes elixir (paid) from mana (free) spells by
// substring-matching the serialized content_data blob. The heuristic follows
// the provider's payloads, which carry no structured currency field.
func classifyCurrency(contentData json.RawMessage) enums.RewardCurrency {
	if strings.Contains(strings.ToLower(string(contentData)), "elixir") {
		return enums.CurrencyTrovoElixir
	}
	return enums.CurrencyTrovoMana
}

// eventTime picks the first populated timestamp field, disambiguating epoch
// seconds from milliseconds by magnitude.
func eventTime(msg ChatMessage) *time.Time {
	for _, raw := range []int64{msg.SendTime, msg.Timestamp} {
		if raw <= 0 {
			continue
		}
		var t time.Time
		if raw < 1e12 {
			t = time.Unix(raw, 0).UTC()
		} else {
			t = time.UnixMilli(raw).UTC()
		}
		return &t
	}
	return nil
}
