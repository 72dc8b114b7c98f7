package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const getAccount = `-- name: GetAccount :one
SELECT id, tier, tier_expires_at, coupon_balance, created_at
FROM accounts
WHERE id = $1
`

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id)
	var i Account
	err := row.Scan(&i.ID, &i.Tier, &i.TierExpiresAt, &i.CouponBalance, &i.CreatedAt)
	return i, err
}

const getAccountForUpdate = `-- name: GetAccountForUpdate :one
SELECT id, tier, tier_expires_at, coupon_balance, created_at
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetAccountForUpdate locks the account row for the duration of the caller's
// transaction. Capacity checks and milestone evaluation serialize on this
// lock so two concurrent requests cannot both pass a check with one slot
// remaining.
func (q *Queries) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccountForUpdate, id)
	var i Account
	err := row.Scan(&i.ID, &i.Tier, &i.TierExpiresAt, &i.CouponBalance, &i.CreatedAt)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, tier, tier_expires_at, coupon_balance)
VALUES ($1, $2, $3, $4)
RETURNING id, tier, tier_expires_at, coupon_balance, created_at
`

type CreateAccountParams struct {
	ID            uuid.UUID
	Tier          string
	TierExpiresAt sql.NullTime
	CouponBalance int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount, arg.ID, arg.Tier, arg.TierExpiresAt, arg.CouponBalance)
	var i Account
	err := row.Scan(&i.ID, &i.Tier, &i.TierExpiresAt, &i.CouponBalance, &i.CreatedAt)
	return i, err
}

const spendCouponBalance = `-- name: SpendCouponBalance :one
UPDATE accounts
SET coupon_balance = coupon_balance - $2
WHERE id = $1 AND coupon_balance >= $2
RETURNING coupon_balance
`

// SpendCouponBalance is the single-statement conditional decrement behind
// balance spends. It affects no row when the balance is insufficient, which
// surfaces here as sql.ErrNoRows. The caller distinguishes that from a
// missing account by re-reading the balance.
func (q *Queries) SpendCouponBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, spendCouponBalance, id, amount)
	var couponBalance int64
	err := row.Scan(&couponBalance)
	return couponBalance, err
}

const addCouponBalance = `-- name: AddCouponBalance :one
UPDATE accounts
SET coupon_balance = coupon_balance + $2
WHERE id = $1
RETURNING coupon_balance
`

func (q *Queries) AddCouponBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, addCouponBalance, id, amount)
	var couponBalance int64
	err := row.Scan(&couponBalance)
	return couponBalance, err
}

const getCouponBalance = `-- name: GetCouponBalance :one
SELECT coupon_balance FROM accounts WHERE id = $1
`

func (q *Queries) GetCouponBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, getCouponBalance, id)
	var couponBalance int64
	err := row.Scan(&couponBalance)
	return couponBalance, err
}

const downgradeExpiredTiers = `-- name: DowngradeExpiredTiers :execrows
UPDATE accounts
SET tier = 'FREE', tier_expires_at = NULL
WHERE tier <> 'FREE'
  AND tier_expires_at IS NOT NULL
  AND tier_expires_at <= $1
`

func (q *Queries) DowngradeExpiredTiers(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, downgradeExpiredTiers, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
