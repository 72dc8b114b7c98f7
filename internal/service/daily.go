// Package service contains the business logic layer.
//
// This file implements the daily-use gate: a per-account, per-feature
// once-per-calendar-day restriction anchored to the reference timezone.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/domain"
	"github.com/dona-app/entitlement/internal/metrics"
)

// TryDaily consumes the daily gate for the current reference-timezone day.
//
// The eligibility check and the marker update are one atomic compare-and-set
// in the store, so two near-simultaneous requests cannot both be allowed.
// A request near midnight is classified by the converted KST day, never the
// UTC day.
func (s *entitlementService) TryDaily(ctx context.Context, accountID uuid.UUID, kind domain.ResourceKind) (*domain.DailyResult, error) {
	const op = "entitlement.try_daily"

	if kind.Class() != domain.ClassDaily {
		return nil, domain.Invalid(op, "resource kind is not daily-limited")
	}

	now := s.now()
	day := domain.ReferenceDay(now)

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, translateStoreError(err, op, "failed to load account")
	}

	tier := account.EffectiveTier(now)
	limit := s.policy.LimitFor(tier, kind)

	// Unbounded tiers bypass the gate entirely: nothing is consumed and the
	// feature stays available for the rest of the day.
	if domain.IsUnlimited(limit) {
		metrics.EntitlementDecisionsTotal.WithLabelValues("daily", "allowed").Inc()
		return &domain.DailyResult{Allowed: true, Day: day}, nil
	}

	// The marker schema expresses exactly one use per day; any finite limit
	// engages it. A zero limit means the tier has no access to the feature.
	if limit == 0 {
		metrics.EntitlementDecisionsTotal.WithLabelValues("daily", "denied").Inc()
		return nil, domain.Forbidden(op, "feature is not available on this tier")
	}

	consumed, err := s.store.ConsumeDaily(ctx, accountID, string(kind), day)
	if err != nil {
		return nil, translateStoreError(err, op, "failed to consume daily gate")
	}

	if consumed {
		metrics.EntitlementDecisionsTotal.WithLabelValues("daily", "allowed").Inc()
	} else {
		metrics.EntitlementDecisionsTotal.WithLabelValues("daily", "denied").Inc()
		s.logger.Info("daily gate already used",
			"account_id", accountID,
			"kind", kind,
			"day", day,
		)
	}

	return &domain.DailyResult{Allowed: consumed, AlreadyUsedToday: !consumed, Day: day}, nil
}
