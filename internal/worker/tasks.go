package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dona-app/entitlement/internal/domain"
	"github.com/dona-app/entitlement/internal/repository"
)

// =============================================================================
// Tier Downgrade Task
// =============================================================================

// TierDowngradeTask moves accounts whose paid tier has expired back to the
// free tier. Reads already treat an expired tier as free, so this task only
// keeps the stored rows honest and the policy lookups cheap.
type TierDowngradeTask struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewTierDowngradeTask creates a new tier downgrade task.
func NewTierDowngradeTask(queries *repository.Queries, logger *slog.Logger) *TierDowngradeTask {
	return &TierDowngradeTask{
		queries: queries,
		logger:  logger,
	}
}

func (t *TierDowngradeTask) Name() string { return "downgrade-expired-tiers" }

func (t *TierDowngradeTask) Run(ctx context.Context) (int64, error) {
	rows, err := t.queries.DowngradeExpiredTiers(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("downgrade expired tiers: %w", err)
	}
	return rows, nil
}

// =============================================================================
// Daily Marker Purge Task
// =============================================================================

// MarkerPurgeTask deletes daily-usage markers older than the retention
// window. A marker only influences gate decisions on the day it was written,
// so old rows are pure bloat.
type MarkerPurgeTask struct {
	queries   *repository.Queries
	retention time.Duration
	logger    *slog.Logger
}

// NewMarkerPurgeTask creates a new marker purge task.
func NewMarkerPurgeTask(queries *repository.Queries, retention time.Duration, logger *slog.Logger) *MarkerPurgeTask {
	return &MarkerPurgeTask{
		queries:   queries,
		retention: retention,
		logger:    logger,
	}
}

func (t *MarkerPurgeTask) Name() string { return "purge-stale-daily-markers" }

func (t *MarkerPurgeTask) Run(ctx context.Context) (int64, error) {
	cutoff := domain.ReferenceDay(time.Now().Add(-t.retention))

	rows, err := t.queries.DeleteStaleDailyMarkers(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale daily markers: %w", err)
	}
	return rows, nil
}
