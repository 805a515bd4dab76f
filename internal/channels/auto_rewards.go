package channels

import (
	"encoding/json"
	"strings"
)

// TwitchAutoRewardRule maps one Twitch reward id to a coin amount.
type TwitchAutoRewardRule struct {
	Enabled      bool  `json:"enabled"`
	Coins        int64 `json:"coins"`
	OnlyWhenLive bool  `json:"onlyWhenLive"`
}

// TwitchAutoRewards is the decoded form of the twitch_auto_rewards_json blob.
type TwitchAutoRewards struct {
	ChannelPoints struct {
		ByRewardID map[string]TwitchAutoRewardRule `json:"byRewardId"`
	} `json:"channelPoints"`
}

// ParseTwitchAutoRewards decodes the per-channel auto-rewards blob. Malformed
// or empty blobs decode to an empty mapping rather than an error so one bad
// settings row cannot halt redemption processing.
func ParseTwitchAutoRewards(raw json.RawMessage) TwitchAutoRewards {
	var rewards TwitchAutoRewards
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return rewards
	}
	if err := json.Unmarshal(raw, &rewards); err != nil {
		return TwitchAutoRewards{}
	}
	return rewards
}

// Rule returns the enabled rule for a reward id, if one is configured.
func (r TwitchAutoRewards) Rule(rewardID string) (TwitchAutoRewardRule, bool) {
	rule, ok := r.ChannelPoints.ByRewardID[rewardID]
	if !ok || !rule.Enabled {
		return TwitchAutoRewardRule{}, false
	}
	return rule, true
}
