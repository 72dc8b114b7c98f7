// Package domain contains core business types and interfaces.
//
// This file defines the account as seen by the entitlement core: the
// identity/auth subsystem owns the full account record; we only read the
// subscription tier, its expiry, and the coupon balance.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a named subscription level determining feature limits.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierBasic   Tier = "BASIC"
	TierPremium Tier = "PREMIUM"
)

// ParseTier maps a stored tier string onto a known tier.
// Unknown strings resolve to FREE, the most restrictive tier, so a bad or
// stale value can never grant unbounded access.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierFree, TierBasic, TierPremium:
		return Tier(s)
	}
	return TierFree
}

// Account is the entitlement core's read view of a registered user.
type Account struct {
	ID            uuid.UUID
	Tier          Tier
	TierExpiresAt *time.Time // nil means the tier does not expire
	CouponBalance int64
	CreatedAt     time.Time
}

// EffectiveTier returns the tier that should govern limits at the given
// instant. A paid tier whose expiry has passed behaves as FREE even before
// the maintenance worker persists the downgrade.
func (a Account) EffectiveTier(now time.Time) Tier {
	if a.Tier == TierFree {
		return TierFree
	}
	if a.TierExpiresAt != nil && !a.TierExpiresAt.After(now) {
		return TierFree
	}
	return a.Tier
}
