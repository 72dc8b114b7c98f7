// Package domain contains core business types and interfaces.
//
// This file defines the tier policy table: a pure mapping from subscription
// tier and resource kind to a numeric limit. It performs no I/O and is the
// single place limits live; services never hard-code a number.
package domain

import "fmt"

// ResourceKind identifies a category of limited resource or action.
type ResourceKind string

const (
	// KindStoredCollage is a capacity-limited kind: persisted date collages.
	KindStoredCollage ResourceKind = "stored-collage"

	// KindStoredPersonalMemory is a capacity-limited kind: persisted personal
	// memory entries.
	KindStoredPersonalMemory ResourceKind = "stored-personal-memory"

	// KindDailyAIRecommendation is a rate-limited kind: at most one AI course
	// recommendation per calendar day (reference timezone).
	KindDailyAIRecommendation ResourceKind = "daily-ai-recommendation"

	// KindSpendableCoupon is a balance kind: a non-negative coupon count that
	// is spent, never policy-limited.
	KindSpendableCoupon ResourceKind = "spendable-coupon"
)

// ParseResourceKind validates an externally supplied kind string. Unlike
// Class and LimitFor, which panic on unknown kinds, this is the safe entry
// point for untrusted input.
func ParseResourceKind(s string) (ResourceKind, bool) {
	switch ResourceKind(s) {
	case KindStoredCollage, KindStoredPersonalMemory, KindDailyAIRecommendation, KindSpendableCoupon:
		return ResourceKind(s), true
	}
	return "", false
}

// PolicyClass describes how a resource kind is governed.
type PolicyClass int

const (
	// ClassCapacity limits the count of persisted rows, checked before insert.
	ClassCapacity PolicyClass = iota
	// ClassDaily limits use to at most once per calendar day.
	ClassDaily
	// ClassBalance is governed by a spendable non-negative balance.
	ClassBalance
)

// Class returns the policy class for a kind. Unknown kinds are a programming
// error and panic, matching the fail-fast contract of LimitFor.
func (k ResourceKind) Class() PolicyClass {
	switch k {
	case KindStoredCollage, KindStoredPersonalMemory:
		return ClassCapacity
	case KindDailyAIRecommendation:
		return ClassDaily
	case KindSpendableCoupon:
		return ClassBalance
	}
	panic(fmt.Sprintf("domain: unknown resource kind %q", string(k)))
}

// Unlimited marks a (tier, kind) pair with no limit.
const Unlimited int64 = -1

// TierLimits holds the per-kind limits for one tier.
type TierLimits struct {
	StoredCollages         int64
	StoredPersonalMemories int64
	DailyAIRecommendations int64
}

// Policy is the full tier policy table plus milestone configuration.
// Values are configuration constants resolved at startup; nothing mutates a
// Policy after construction.
type Policy struct {
	Tiers map[Tier]TierLimits

	// MilestoneStep is the count interval at which completion rewards fire
	// (every MilestoneStep-th completion grants a reward).
	MilestoneStep int64

	// MilestoneReward is the number of coupons credited per milestone.
	MilestoneReward int64
}

// DefaultPolicy returns the shipped policy table. Individual values can be
// overridden through configuration without touching any counter logic.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: map[Tier]TierLimits{
			TierFree: {
				StoredCollages:         5,
				StoredPersonalMemories: 3,
				DailyAIRecommendations: 1,
			},
			TierBasic: {
				StoredCollages:         30,
				StoredPersonalMemories: 50,
				DailyAIRecommendations: 1,
			},
			TierPremium: {
				StoredCollages:         Unlimited,
				StoredPersonalMemories: Unlimited,
				DailyAIRecommendations: Unlimited,
			},
		},
		MilestoneStep:   5,
		MilestoneReward: 1,
	}
}

// LimitFor returns the limit for a (tier, kind) pair.
//
// Unknown tiers resolve to FREE's limits, never to unbounded. An unknown
// resource kind is a programming error and panics; every kind the facade
// handles must have an entry in this table.
func (p Policy) LimitFor(tier Tier, kind ResourceKind) int64 {
	limits, ok := p.Tiers[tier]
	if !ok {
		limits = p.Tiers[TierFree]
	}
	switch kind {
	case KindStoredCollage:
		return limits.StoredCollages
	case KindStoredPersonalMemory:
		return limits.StoredPersonalMemories
	case KindDailyAIRecommendation:
		return limits.DailyAIRecommendations
	case KindSpendableCoupon:
		// Balance kinds are constrained by the balance itself, not policy.
		return Unlimited
	}
	panic(fmt.Sprintf("domain: unknown resource kind %q", string(kind)))
}

// IsUnlimited reports whether a limit value means "no limit".
func IsUnlimited(limit int64) bool {
	return limit == Unlimited
}
