package domain

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Store is the durable state the entitlement core reads and mutates. The
// production implementation lives in internal/repository over Postgres; tests
// substitute an in-memory implementation with the same atomicity contract.
//
// Error convention: a missing account surfaces as an ENOTFOUND-coded *Error;
// any other failure is returned raw and callers treat it as transient: a
// storage fault must never be reported as an exhausted limit.
type Store interface {
	// GetAccount returns the entitlement view of an account.
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)

	// GetAccountForUpdate additionally serializes concurrent operations on
	// the same account until the enclosing WithinTx call returns. Outside a
	// transaction it behaves like GetAccount.
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error)

	// CountUsage returns the live usage-record count for (account, kind),
	// computed fresh on every call.
	CountUsage(ctx context.Context, id uuid.UUID, kind string) (int64, error)

	// InsertUsage persists a usage record unconditionally; capacity must
	// already have been checked inside the same transaction.
	InsertUsage(ctx context.Context, id uuid.UUID, kind string, payload json.RawMessage) (UsageRecord, error)

	// SpendBalance atomically decrements the coupon balance when it covers
	// amount. It reports the post-operation balance in either case.
	SpendBalance(ctx context.Context, id uuid.UUID, amount int64) (remaining int64, spent bool, err error)

	// AddBalance credits the coupon balance and returns the new value.
	AddBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error)

	// Balance returns the current coupon balance.
	Balance(ctx context.Context, id uuid.UUID) (int64, error)

	// ConsumeDaily atomically claims the given reference day for
	// (account, feature). It reports false when that day was already used.
	ConsumeDaily(ctx context.Context, id uuid.UUID, feature, day string) (bool, error)

	// LastDailyUse returns the last claimed day for (account, feature), or
	// the empty string when the feature was never used.
	LastDailyUse(ctx context.Context, id uuid.UUID, feature string) (string, error)

	// InsertMilestone records a granted milestone. It reports false when the
	// (account, type, index) reward was already recorded.
	InsertMilestone(ctx context.Context, id uuid.UUID, milestoneType string, index int64) (bool, error)
}

// TxStore extends Store with transactional composition. Every multi-step
// entitlement mutation (capacity check-then-insert, completion plus reward)
// runs inside a single WithinTx call so it applies fully or not at all.
type TxStore interface {
	Store

	// WithinTx runs fn against a Store whose operations share one
	// transaction, committing when fn returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
