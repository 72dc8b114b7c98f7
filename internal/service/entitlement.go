// Package service contains the business logic layer.
//
// Services orchestrate the datastore and domain policy. They are responsible
// for:
// - Input validation
// - Limit enforcement and transaction coordination
// - Error translation (storage errors -> domain errors)
//
// Expected denials (capacity exceeded, insufficient balance, already used
// today) are returned as typed results with the concrete numbers attached;
// only authentication problems, bad input, and storage faults are errors.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/domain"
	"github.com/dona-app/entitlement/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EntitlementService is the single entry point route handlers use to answer
// "can this account perform this action now, and what happens if it does".
type EntitlementService interface {
	// TryStore attempts a capacity-gated store of one resource instance.
	// The capacity check and the insert run as one atomic unit, so two
	// concurrent stores cannot both claim the last free slot.
	// Returns domain.ENOTFOUND if the account does not exist.
	// Returns domain.EINVALID if kind is not a capacity-limited kind.
	TryStore(ctx context.Context, accountID uuid.UUID, kind domain.ResourceKind, payload json.RawMessage) (*domain.StoreResult, error)

	// TrySpend attempts an atomic conditional decrement of the coupon
	// balance. The result reports the post-operation balance whether or not
	// the spend succeeded.
	// Returns domain.ENOTFOUND if the account does not exist.
	// Returns domain.EINVALID if amount is not positive.
	TrySpend(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.SpendResult, error)

	// TryDaily attempts to consume a once-per-day feature for the current
	// reference-timezone day. Gate success is the consumption; the caller
	// performs the gated action afterwards.
	// Returns domain.ENOTFOUND if the account does not exist.
	// Returns domain.EINVALID if kind is not a daily-limited kind.
	TryDaily(ctx context.Context, accountID uuid.UUID, kind domain.ResourceKind) (*domain.DailyResult, error)

	// RecordCompletion records one completion event and grants the milestone
	// reward when the new count crosses a step boundary. Grants are
	// idempotent per (account, type, index), so retries are safe.
	// Returns domain.ENOTFOUND if the account does not exist.
	RecordCompletion(ctx context.Context, accountID uuid.UUID, milestoneType domain.MilestoneType) (*domain.CompletionResult, error)

	// Usage returns a read-only snapshot of the account's standing against
	// every limit, sufficient to render upgrade prompts without further
	// queries.
	// Returns domain.ENOTFOUND if the account does not exist.
	Usage(ctx context.Context, accountID uuid.UUID) (*domain.UsageSnapshot, error)
}

// =============================================================================
// Implementation
// =============================================================================

type entitlementService struct {
	store  domain.TxStore
	policy domain.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewEntitlementService creates a new EntitlementService.
//
// Dependencies:
// - store: durable counter/balance state (Postgres in production)
// - policy: the tier policy table, fixed for the process lifetime
// - logger: structured logger for decision logging
func NewEntitlementService(store domain.TxStore, policy domain.Policy, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// TryStore performs the capacity-gated store.
//
// The account row is locked for the duration of the transaction, so the
// fresh count and the insert observe a serialized view per account. Unbounded
// tiers skip the count comparison but still report the resulting count.
func (s *entitlementService) TryStore(ctx context.Context, accountID uuid.UUID, kind domain.ResourceKind, payload json.RawMessage) (*domain.StoreResult, error) {
	const op = "entitlement.try_store"

	if kind.Class() != domain.ClassCapacity {
		return nil, domain.Invalid(op, "resource kind is not capacity-limited")
	}

	var result *domain.StoreResult
	err := s.store.WithinTx(ctx, func(st domain.Store) error {
		account, err := st.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		tier := account.EffectiveTier(s.now())
		limit := s.policy.LimitFor(tier, kind)

		if domain.IsUnlimited(limit) {
			record, err := st.InsertUsage(ctx, accountID, string(kind), payload)
			if err != nil {
				return err
			}
			count, err := st.CountUsage(ctx, accountID, string(kind))
			if err != nil {
				return err
			}
			result = &domain.StoreResult{Allowed: true, Used: count, Limit: limit, Record: &record}
			return nil
		}

		count, err := st.CountUsage(ctx, accountID, string(kind))
		if err != nil {
			return err
		}
		if count >= limit {
			result = &domain.StoreResult{Allowed: false, Used: count, Limit: limit}
			return nil
		}

		record, err := st.InsertUsage(ctx, accountID, string(kind), payload)
		if err != nil {
			return err
		}
		result = &domain.StoreResult{Allowed: true, Used: count + 1, Limit: limit, Record: &record}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, op, "failed to store resource")
	}

	if result.Allowed {
		metrics.EntitlementDecisionsTotal.WithLabelValues("store", "allowed").Inc()
	} else {
		metrics.EntitlementDecisionsTotal.WithLabelValues("store", "denied").Inc()
		s.logger.Info("capacity limit reached",
			"account_id", accountID,
			"kind", kind,
			"used", result.Used,
			"limit", result.Limit,
		)
	}

	return result, nil
}

// TrySpend performs the atomic conditional balance decrement.
func (s *entitlementService) TrySpend(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.SpendResult, error) {
	const op = "entitlement.try_spend"

	if amount <= 0 {
		return nil, domain.Invalid(op, "spend amount must be positive")
	}

	remaining, spent, err := s.store.SpendBalance(ctx, accountID, amount)
	if err != nil {
		return nil, translateStoreError(err, op, "failed to spend balance")
	}

	if spent {
		metrics.EntitlementDecisionsTotal.WithLabelValues("spend", "allowed").Inc()
	} else {
		metrics.EntitlementDecisionsTotal.WithLabelValues("spend", "denied").Inc()
		s.logger.Info("insufficient coupon balance",
			"account_id", accountID,
			"amount", amount,
			"remaining", remaining,
		)
	}

	return &domain.SpendResult{Spent: spent, Remaining: remaining}, nil
}

// Usage returns the account's standing against every limit.
func (s *entitlementService) Usage(ctx context.Context, accountID uuid.UUID) (*domain.UsageSnapshot, error) {
	const op = "entitlement.usage"

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, translateStoreError(err, op, "failed to load account")
	}

	now := s.now()
	tier := account.EffectiveTier(now)

	snapshot := &domain.UsageSnapshot{
		AccountID:     accountID,
		Tier:          tier,
		CouponBalance: account.CouponBalance,
	}

	for _, kind := range []domain.ResourceKind{domain.KindStoredCollage, domain.KindStoredPersonalMemory} {
		count, err := s.store.CountUsage(ctx, accountID, string(kind))
		if err != nil {
			return nil, translateStoreError(err, op, "failed to count usage")
		}
		snapshot.Capacities = append(snapshot.Capacities, domain.KindUsage{
			Kind:  kind,
			Used:  count,
			Limit: s.policy.LimitFor(tier, kind),
		})
	}

	lastUse, err := s.store.LastDailyUse(ctx, accountID, string(domain.KindDailyAIRecommendation))
	if err != nil {
		return nil, translateStoreError(err, op, "failed to read daily marker")
	}
	snapshot.AIUsedToday = lastUse == domain.ReferenceDay(now)

	return snapshot, nil
}

// translateStoreError passes through already-typed domain errors and wraps
// anything else as EINTERNAL, keeping the "storage fault is never a denial"
// contract in one place.
func translateStoreError(err error, op, message string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Internal(err, op, message)
}
