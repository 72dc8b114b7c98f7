// Package service contains the business logic layer.
//
// This file implements the milestone reward engine: completion counts cross
// step-boundaries, each boundary grants a one-time coupon reward, and the
// (account, type, index) reward record makes every grant idempotent.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/domain"
	"github.com/dona-app/entitlement/internal/metrics"
)

// RecordCompletion records one completion event and evaluates milestones.
//
// Everything happens inside one transaction with the account row locked:
// the completion insert, the fresh count, the reward record, and the coupon
// credit commit together or not at all: a reward can never be granted
// without its record, nor the record without the credit.
//
// A retried request inserts a fresh completion event, pushing the count past
// the boundary, so the earlier milestone index is not recomputed; and even if
// two requests observe the same crossing count, the reward record's unique
// key lets only one of them credit the balance.
func (s *entitlementService) RecordCompletion(ctx context.Context, accountID uuid.UUID, milestoneType domain.MilestoneType) (*domain.CompletionResult, error) {
	const op = "entitlement.record_completion"

	var result *domain.CompletionResult
	err := s.store.WithinTx(ctx, func(st domain.Store) error {
		account, err := st.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		if _, err := st.InsertUsage(ctx, accountID, string(milestoneType), nil); err != nil {
			return err
		}

		count, err := st.CountUsage(ctx, accountID, string(milestoneType))
		if err != nil {
			return err
		}

		result = &domain.CompletionResult{Count: count, Balance: account.CouponBalance}

		// Milestone indexes are only defined at exact multiples of the step.
		if count%s.policy.MilestoneStep != 0 {
			return nil
		}
		index := count / s.policy.MilestoneStep

		granted, err := st.InsertMilestone(ctx, accountID, string(milestoneType), index)
		if err != nil {
			return err
		}
		if !granted {
			// Reward already recorded for this index: success-no-op.
			return nil
		}

		balance, err := st.AddBalance(ctx, accountID, s.policy.MilestoneReward)
		if err != nil {
			return err
		}
		result.RewardGranted = true
		result.MilestoneIndex = index
		result.Balance = balance
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, op, "failed to record completion")
	}

	if result.RewardGranted {
		metrics.MilestoneRewardsTotal.Inc()
		s.logger.Info("milestone reward granted",
			"account_id", accountID,
			"milestone_type", milestoneType,
			"milestone_index", result.MilestoneIndex,
			"count", result.Count,
			"balance", result.Balance,
		)
	}

	return result, nil
}
