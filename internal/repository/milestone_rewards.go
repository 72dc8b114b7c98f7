package repository

import (
	"context"

	"github.com/google/uuid"
)

const createMilestoneReward = `-- name: CreateMilestoneReward :execrows
INSERT INTO milestone_rewards (account_id, milestone_type, milestone_index)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, milestone_type, milestone_index) DO NOTHING
`

// CreateMilestoneReward records that the reward for a milestone index was
// granted. The unique constraint is the idempotency key: a replayed or
// concurrent grant affects zero rows and the caller skips the credit.
func (q *Queries) CreateMilestoneReward(ctx context.Context, accountID uuid.UUID, milestoneType string, milestoneIndex int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, createMilestoneReward, accountID, milestoneType, milestoneIndex)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getMilestoneReward = `-- name: GetMilestoneReward :one
SELECT account_id, milestone_type, milestone_index, granted_at
FROM milestone_rewards
WHERE account_id = $1 AND milestone_type = $2 AND milestone_index = $3
`

func (q *Queries) GetMilestoneReward(ctx context.Context, accountID uuid.UUID, milestoneType string, milestoneIndex int64) (MilestoneReward, error) {
	row := q.db.QueryRowContext(ctx, getMilestoneReward, accountID, milestoneType, milestoneIndex)
	var i MilestoneReward
	err := row.Scan(&i.AccountID, &i.MilestoneType, &i.MilestoneIndex, &i.GrantedAt)
	return i, err
}
