package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

const consumeDailyMarker = `-- name: ConsumeDailyMarker :execrows
INSERT INTO daily_usage_markers (account_id, feature, last_used_day, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (account_id, feature)
DO UPDATE SET last_used_day = EXCLUDED.last_used_day, updated_at = now()
WHERE daily_usage_markers.last_used_day < EXCLUDED.last_used_day
`

// ConsumeDailyMarker is the atomic compare-and-set behind the daily gate.
// The single upsert either claims the given day (one row affected) or leaves
// the marker untouched (zero rows), so two near-simultaneous requests for the
// same day can never both be allowed. YYYY-MM-DD day strings order
// lexicographically, so the < guard also rejects writes that would move the
// marker backwards.
func (q *Queries) ConsumeDailyMarker(ctx context.Context, accountID uuid.UUID, feature, day string) (int64, error) {
	result, err := q.db.ExecContext(ctx, consumeDailyMarker, accountID, feature, day)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getDailyMarker = `-- name: GetDailyMarker :one
SELECT account_id, feature, last_used_day, updated_at
FROM daily_usage_markers
WHERE account_id = $1 AND feature = $2
`

func (q *Queries) GetDailyMarker(ctx context.Context, accountID uuid.UUID, feature string) (DailyUsageMarker, error) {
	row := q.db.QueryRowContext(ctx, getDailyMarker, accountID, feature)
	var i DailyUsageMarker
	err := row.Scan(&i.AccountID, &i.Feature, &i.LastUsedDay, &i.UpdatedAt)
	return i, err
}

const deleteStaleDailyMarkers = `-- name: DeleteStaleDailyMarkers :execrows
DELETE FROM daily_usage_markers
WHERE last_used_day < $1
`

func (q *Queries) DeleteStaleDailyMarkers(ctx context.Context, beforeDay string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteStaleDailyMarkers, beforeDay)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// IsNoRows reports whether err is the driver's empty-result sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
