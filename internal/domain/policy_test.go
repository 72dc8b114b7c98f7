package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitForFullGrid(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		tier Tier
		kind ResourceKind
		want int64
	}{
		{TierFree, KindStoredCollage, 5},
		{TierFree, KindStoredPersonalMemory, 3},
		{TierFree, KindDailyAIRecommendation, 1},
		{TierFree, KindSpendableCoupon, Unlimited},
		{TierBasic, KindStoredCollage, 30},
		{TierBasic, KindStoredPersonalMemory, 50},
		{TierBasic, KindDailyAIRecommendation, 1},
		{TierBasic, KindSpendableCoupon, Unlimited},
		{TierPremium, KindStoredCollage, Unlimited},
		{TierPremium, KindStoredPersonalMemory, Unlimited},
		{TierPremium, KindDailyAIRecommendation, Unlimited},
		{TierPremium, KindSpendableCoupon, Unlimited},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+string(tt.kind), func(t *testing.T) {
			got := p.LimitFor(tt.tier, tt.kind)
			assert.Equal(t, tt.want, got)
			// Every entry is either unbounded or a non-negative number.
			assert.True(t, got == Unlimited || got >= 0)
		})
	}
}

func TestLimitForUnknownTierDefaultsToFree(t *testing.T) {
	p := DefaultPolicy()

	for _, kind := range []ResourceKind{
		KindStoredCollage,
		KindStoredPersonalMemory,
		KindDailyAIRecommendation,
	} {
		assert.Equal(t, p.LimitFor(TierFree, kind), p.LimitFor(Tier("VIP"), kind),
			"unknown tier must resolve to FREE limits for %s", kind)
	}
}

func TestLimitForUnknownKindPanics(t *testing.T) {
	p := DefaultPolicy()
	assert.Panics(t, func() {
		p.LimitFor(TierFree, ResourceKind("stored-playlist"))
	})
}

func TestResourceKindClass(t *testing.T) {
	tests := []struct {
		kind ResourceKind
		want PolicyClass
	}{
		{KindStoredCollage, ClassCapacity},
		{KindStoredPersonalMemory, ClassCapacity},
		{KindDailyAIRecommendation, ClassDaily},
		{KindSpendableCoupon, ClassBalance},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Class())
	}

	assert.Panics(t, func() {
		ResourceKind("stored-playlist").Class()
	})
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"FREE", TierFree},
		{"BASIC", TierBasic},
		{"PREMIUM", TierPremium},
		{"", TierFree},
		{"premium", TierFree}, // tiers are stored uppercase; anything else is untrusted
		{"ENTERPRISE", TierFree},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTier(tt.in), "ParseTier(%q)", tt.in)
	}
}
