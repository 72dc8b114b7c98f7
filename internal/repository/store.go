package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/dona-app/entitlement/internal/domain"
)

// Store adapts the query layer to the domain.TxStore contract. A Store bound
// to the pooled *sql.DB runs each call as its own implicit transaction;
// WithinTx rebinds the queries to one explicit transaction so row locks taken
// by GetAccountForUpdate hold across the whole unit.
type Store struct {
	db *sql.DB
	q  *Queries
}

// NewStore creates the Postgres-backed entitlement store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: New(db)}
}

var _ domain.TxStore = (*Store)(nil)

// WithinTx runs fn against a Store bound to a single transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &Store{db: s.db, q: s.q.WithTx(tx)}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	row, err := s.q.GetAccount(ctx, id)
	if err != nil {
		if IsNoRows(err) {
			return domain.Account{}, domain.NotFound("store.get_account", "account", id.String())
		}
		return domain.Account{}, err
	}
	return accountToDomain(row), nil
}

func (s *Store) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	row, err := s.q.GetAccountForUpdate(ctx, id)
	if err != nil {
		if IsNoRows(err) {
			return domain.Account{}, domain.NotFound("store.get_account_for_update", "account", id.String())
		}
		return domain.Account{}, err
	}
	return accountToDomain(row), nil
}

func (s *Store) CountUsage(ctx context.Context, id uuid.UUID, kind string) (int64, error) {
	return s.q.CountUsageRecords(ctx, id, kind)
}

func (s *Store) InsertUsage(ctx context.Context, id uuid.UUID, kind string, payload json.RawMessage) (domain.UsageRecord, error) {
	row, err := s.q.CreateUsageRecord(ctx, CreateUsageRecordParams{
		ID:        uuid.New(),
		AccountID: id,
		Kind:      kind,
		Payload:   pqtype.NullRawMessage{RawMessage: payload, Valid: len(payload) > 0},
	})
	if err != nil {
		return domain.UsageRecord{}, err
	}
	return usageRecordToDomain(row), nil
}

func (s *Store) SpendBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, bool, error) {
	remaining, err := s.q.SpendCouponBalance(ctx, id, amount)
	if err == nil {
		return remaining, true, nil
	}
	if !IsNoRows(err) {
		return 0, false, err
	}

	// The conditional update matched no row: either the balance was short or
	// the account does not exist. Re-read to tell the two apart and to report
	// the current balance on failure.
	balance, err := s.q.GetCouponBalance(ctx, id)
	if err != nil {
		if IsNoRows(err) {
			return 0, false, domain.NotFound("store.spend_balance", "account", id.String())
		}
		return 0, false, err
	}
	return balance, false, nil
}

func (s *Store) AddBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	balance, err := s.q.AddCouponBalance(ctx, id, amount)
	if err != nil {
		if IsNoRows(err) {
			return 0, domain.NotFound("store.add_balance", "account", id.String())
		}
		return 0, err
	}
	return balance, nil
}

func (s *Store) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	balance, err := s.q.GetCouponBalance(ctx, id)
	if err != nil {
		if IsNoRows(err) {
			return 0, domain.NotFound("store.balance", "account", id.String())
		}
		return 0, err
	}
	return balance, nil
}

func (s *Store) ConsumeDaily(ctx context.Context, id uuid.UUID, feature, day string) (bool, error) {
	affected, err := s.q.ConsumeDailyMarker(ctx, id, feature, day)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Store) LastDailyUse(ctx context.Context, id uuid.UUID, feature string) (string, error) {
	marker, err := s.q.GetDailyMarker(ctx, id, feature)
	if err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return marker.LastUsedDay, nil
}

func (s *Store) InsertMilestone(ctx context.Context, id uuid.UUID, milestoneType string, index int64) (bool, error) {
	affected, err := s.q.CreateMilestoneReward(ctx, id, milestoneType, index)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func accountToDomain(row Account) domain.Account {
	a := domain.Account{
		ID:            row.ID,
		Tier:          domain.ParseTier(row.Tier),
		CouponBalance: row.CouponBalance,
		CreatedAt:     row.CreatedAt,
	}
	if row.TierExpiresAt.Valid {
		t := row.TierExpiresAt.Time
		a.TierExpiresAt = &t
	}
	return a
}

func usageRecordToDomain(row UsageRecord) domain.UsageRecord {
	r := domain.UsageRecord{
		ID:        row.ID,
		AccountID: row.AccountID,
		Kind:      row.Kind,
		CreatedAt: row.CreatedAt,
	}
	if row.Payload.Valid {
		r.Payload = json.RawMessage(row.Payload.RawMessage)
	}
	return r
}
