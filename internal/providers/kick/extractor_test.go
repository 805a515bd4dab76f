package kick

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

func TestExtractSubscription_NewSub(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.subscription.new","id":"sub-1","subscriber":{"user_id":"kick-1"},"months":1}`))
	require.NoError(t, err)

	intent, ok := ExtractSubscription(event, decimal.NewFromInt(25))
	require.True(t, ok)
	assert.Equal(t, "kick-1", intent.ProviderAccountID)
	assert.Equal(t, int64(1), intent.Months)
	assert.Equal(t, int64(25), intent.CoinsToGrant)
	assert.Equal(t, enums.RewardStatusEligible, intent.Status)
}

func TestExtractSubscription_RenewalMultiMonth(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.subscription.renewal","subscriber":{"user_id":"kick-1"},"months":3}`))
	require.NoError(t, err)

	intent, ok := ExtractSubscription(event, decimal.NewFromFloat(10.5))
	require.True(t, ok)
	assert.Equal(t, int64(3), intent.Months)
	assert.Equal(t, int64(31), intent.CoinsToGrant, "3 x 10.5 floored")
}

func TestExtractSubscription_GiftsMultiplyQuantity(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.subscription.gifts","subscriber":{"user_id":"gifter-1"},"months":1,"quantity":5}`))
	require.NoError(t, err)

	intent, ok := ExtractSubscription(event, decimal.NewFromInt(10))
	require.True(t, ok)
	assert.Equal(t, "gifter-1", intent.ProviderAccountID, "gifter earns the coins")
	assert.Equal(t, int64(5), intent.Months)
	assert.Equal(t, int64(50), intent.CoinsToGrant)
}

func TestExtractSubscription_MissingMonthsDefaultsToOne(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.subscription.new","subscriber":{"user_id":"kick-1"}}`))
	require.NoError(t, err)

	intent, ok := ExtractSubscription(event, decimal.NewFromInt(20))
	require.True(t, ok)
	assert.Equal(t, int64(1), intent.Months)
	assert.Equal(t, int64(20), intent.CoinsToGrant)
}

func TestExtractSubscription_UnconfiguredChannelIgnored(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.subscription.new","subscriber":{"user_id":"kick-1"},"months":2}`))
	require.NoError(t, err)

	intent, ok := ExtractSubscription(event, decimal.Zero)
	require.True(t, ok)
	assert.Equal(t, int64(0), intent.CoinsToGrant)
	assert.Equal(t, enums.RewardStatusIgnored, intent.Status)
	assert.Equal(t, ReasonUnconfigured, intent.Reason)
}

func TestExtractSubscription_OtherEventTypesSkipped(t *testing.T) {
	event, err := DecodeSubscriptionEvent([]byte(`{"type":"channel.followed","subscriber":{"user_id":"kick-1"}}`))
	require.NoError(t, err)

	_, ok := ExtractSubscription(event, decimal.NewFromInt(10))
	assert.False(t, ok)
}

func TestDecodeSubscriptionEvent_MalformedPayload(t *testing.T) {
	_, err := DecodeSubscriptionEvent([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = DecodeSubscriptionEvent([]byte(`{"subscriber":{"user_id":"kick-1"}}`))
	assert.Error(t, err, "type is required")
}

func TestEventTime_SecondsVersusMillis(t *testing.T) {
	seconds := eventTime(1764000000)
	require.NotNil(t, seconds)
	assert.Equal(t, int64(1764000000), seconds.Unix())

	millis := eventTime(1764000000000)
	require.NotNil(t, millis)
	assert.Equal(t, int64(1764000000), millis.Unix())

	assert.Nil(t, eventTime(0))
}
