package channels

import (
	"encoding/json"
	"testing"
)

func TestParseTwitchAutoRewards(t *testing.T) {
	raw := json.RawMessage(`{
		"channelPoints": {
			"byRewardId": {
				"reward-a": {"enabled": true, "coins": 50, "onlyWhenLive": true},
				"reward-b": {"enabled": false, "coins": 10}
			}
		}
	}`)

	rewards := ParseTwitchAutoRewards(raw)

	rule, ok := rewards.Rule("reward-a")
	if !ok {
		t.Fatal("expected enabled rule for reward-a")
	}
	if rule.Coins != 50 || !rule.OnlyWhenLive {
		t.Fatalf("unexpected rule %+v", rule)
	}

	if _, ok := rewards.Rule("reward-b"); ok {
		t.Fatal("disabled rule must not resolve")
	}
	if _, ok := rewards.Rule("missing"); ok {
		t.Fatal("unknown reward id must not resolve")
	}
}

func TestParseTwitchAutoRewardsMalformed(t *testing.T) {
	for _, raw := range []string{"", "null", "not-json", `{"channelPoints": 7}`} {
		rewards := ParseTwitchAutoRewards(json.RawMessage(raw))
		if _, ok := rewards.Rule("any"); ok {
			t.Fatalf("expected empty mapping for input %q", raw)
		}
	}
}
