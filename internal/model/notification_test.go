package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetConditionsIsEmpty(t *testing.T) {
	assert.True(t, TargetConditions{}.IsEmpty())

	verified := true
	assert.False(t, TargetConditions{IsVerified: &verified}.IsEmpty())
	assert.False(t, TargetConditions{Countries: []string{"DE"}}.IsEmpty())
}

func TestTargetConditionsScanNil(t *testing.T) {
	cond := TargetConditions{SubscriptionPlans: []string{"premium"}}
	require.NoError(t, cond.Scan(nil))
	assert.True(t, cond.IsEmpty())
}

func TestTargetConditionsRoundTrip(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := TargetConditions{
		SubscriptionPlans: []string{"premium", "pro"},
		Countries:         []string{"GB", "IE"},
		CreatedAfter:      &after,
	}

	raw, err := in.Value()
	require.NoError(t, err)

	var out TargetConditions
	require.NoError(t, out.Scan(raw.([]byte)))
	assert.Equal(t, in, out)
}

func TestNotificationIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Notification{}).IsExpired(now))
	assert.False(t, (&Notification{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&Notification{ExpiresAt: &past}).IsExpired(now))
}
