package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const countUsageRecords = `-- name: CountUsageRecords :one
SELECT count(*) FROM usage_records
WHERE account_id = $1 AND kind = $2
`

// CountUsageRecords returns the live row count for (account, kind). Counts
// are always computed fresh rather than maintained as a running counter;
// capacity checks are low-frequency and a cached counter can drift.
func (q *Queries) CountUsageRecords(ctx context.Context, accountID uuid.UUID, kind string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsageRecords, accountID, kind)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createUsageRecord = `-- name: CreateUsageRecord :one
INSERT INTO usage_records (id, account_id, kind, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, account_id, kind, payload, created_at
`

type CreateUsageRecordParams struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Kind      string
	Payload   pqtype.NullRawMessage
}

func (q *Queries) CreateUsageRecord(ctx context.Context, arg CreateUsageRecordParams) (UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, createUsageRecord, arg.ID, arg.AccountID, arg.Kind, arg.Payload)
	var i UsageRecord
	err := row.Scan(&i.ID, &i.AccountID, &i.Kind, &i.Payload, &i.CreatedAt)
	return i, err
}
