package enums

import "fmt"

// Provider maps to the provider enum in Postgres and identifies the external
// platform a reward-triggering event originated from.
type Provider string

const (
	ProviderTwitch  Provider = "twitch"
	ProviderYouTube Provider = "youtube"
	ProviderKick    Provider = "kick"
	ProviderTrovo   Provider = "trovo"
	ProviderVKVideo Provider = "vkvideo"
	ProviderBoosty  Provider = "boosty"
	ProviderDiscord Provider = "discord"
)

var validProviders = []Provider{
	ProviderTwitch,
	ProviderYouTube,
	ProviderKick,
	ProviderTrovo,
	ProviderVKVideo,
	ProviderBoosty,
	ProviderDiscord,
}

// ChatBotProviders lists providers whose account links trigger a pending-grant sweep.
var ChatBotProviders = []Provider{
	ProviderKick,
	ProviderTrovo,
	ProviderVKVideo,
}

// IsValid reports whether the value matches the canonical provider enum.
func (p Provider) IsValid() bool {
	for _, candidate := range validProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsChatBotCapable reports whether linking this provider sweeps escrowed grants.
func (p Provider) IsChatBotCapable() bool {
	for _, candidate := range ChatBotProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProvider converts raw input into a Provider.
func ParseProvider(raw string) (Provider, error) {
	candidate := Provider(raw)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid provider %q", raw)
	}
	return candidate, nil
}
