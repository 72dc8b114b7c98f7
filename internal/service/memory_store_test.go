package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/domain"
)

// memStore is an in-memory domain.TxStore for tests. It honors the same
// atomicity contract as the Postgres store: single operations are atomic
// under one mutex, and WithinTx holds that mutex for the whole unit with
// snapshot-rollback on error.
type memStore struct {
	mu sync.Mutex
	s  memState

	// failWith, when set, makes every operation fail, simulating the
	// datastore being unreachable.
	failWith error
}

type memState struct {
	accounts   map[uuid.UUID]domain.Account
	usage      map[uuid.UUID]map[string][]domain.UsageRecord
	markers    map[string]string // accountID|feature -> last used day
	milestones map[string]bool   // accountID|type|index
}

func newMemStore(accounts ...domain.Account) *memStore {
	st := &memStore{
		s: memState{
			accounts:   make(map[uuid.UUID]domain.Account),
			usage:      make(map[uuid.UUID]map[string][]domain.UsageRecord),
			markers:    make(map[string]string),
			milestones: make(map[string]bool),
		},
	}
	for _, a := range accounts {
		st.s.accounts[a.ID] = a
	}
	return st
}

func (m *memStore) clone() memState {
	c := memState{
		accounts:   make(map[uuid.UUID]domain.Account, len(m.s.accounts)),
		usage:      make(map[uuid.UUID]map[string][]domain.UsageRecord, len(m.s.usage)),
		markers:    make(map[string]string, len(m.s.markers)),
		milestones: make(map[string]bool, len(m.s.milestones)),
	}
	for k, v := range m.s.accounts {
		c.accounts[k] = v
	}
	for k, v := range m.s.usage {
		kinds := make(map[string][]domain.UsageRecord, len(v))
		for kind, records := range v {
			kinds[kind] = append([]domain.UsageRecord(nil), records...)
		}
		c.usage[k] = kinds
	}
	for k, v := range m.s.markers {
		c.markers[k] = v
	}
	for k, v := range m.s.milestones {
		c.milestones[k] = v
	}
	return c
}

func (m *memStore) WithinTx(ctx context.Context, fn func(domain.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	snapshot := m.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

// locked ops (outside a transaction)

func (m *memStore) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).GetAccount(ctx, id)
}

func (m *memStore) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return m.GetAccount(ctx, id)
}

func (m *memStore) CountUsage(ctx context.Context, id uuid.UUID, kind string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).CountUsage(ctx, id, kind)
}

func (m *memStore) InsertUsage(ctx context.Context, id uuid.UUID, kind string, payload json.RawMessage) (domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).InsertUsage(ctx, id, kind, payload)
}

func (m *memStore) SpendBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).SpendBalance(ctx, id, amount)
}

func (m *memStore) AddBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).AddBalance(ctx, id, amount)
}

func (m *memStore) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).Balance(ctx, id)
}

func (m *memStore) ConsumeDaily(ctx context.Context, id uuid.UUID, feature, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).ConsumeDaily(ctx, id, feature, day)
}

func (m *memStore) LastDailyUse(ctx context.Context, id uuid.UUID, feature string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).LastDailyUse(ctx, id, feature)
}

func (m *memStore) InsertMilestone(ctx context.Context, id uuid.UUID, milestoneType string, index int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m}).InsertMilestone(ctx, id, milestoneType, index)
}

// memTx is the unlocked view handed to WithinTx callbacks; the enclosing
// mutex is already held.
type memTx struct {
	store *memStore
}

func (t *memTx) fail() error { return t.store.failWith }

func (t *memTx) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if err := t.fail(); err != nil {
		return domain.Account{}, err
	}
	a, ok := t.store.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.NotFound("memstore.get_account", "account", id.String())
	}
	return a, nil
}

func (t *memTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return t.GetAccount(ctx, id)
}

func (t *memTx) CountUsage(ctx context.Context, id uuid.UUID, kind string) (int64, error) {
	if err := t.fail(); err != nil {
		return 0, err
	}
	return int64(len(t.store.s.usage[id][kind])), nil
}

func (t *memTx) InsertUsage(ctx context.Context, id uuid.UUID, kind string, payload json.RawMessage) (domain.UsageRecord, error) {
	if err := t.fail(); err != nil {
		return domain.UsageRecord{}, err
	}
	record := domain.UsageRecord{
		ID:        uuid.New(),
		AccountID: id,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if t.store.s.usage[id] == nil {
		t.store.s.usage[id] = make(map[string][]domain.UsageRecord)
	}
	t.store.s.usage[id][kind] = append(t.store.s.usage[id][kind], record)
	return record, nil
}

func (t *memTx) SpendBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, bool, error) {
	if err := t.fail(); err != nil {
		return 0, false, err
	}
	a, ok := t.store.s.accounts[id]
	if !ok {
		return 0, false, domain.NotFound("memstore.spend_balance", "account", id.String())
	}
	if a.CouponBalance < amount {
		return a.CouponBalance, false, nil
	}
	a.CouponBalance -= amount
	t.store.s.accounts[id] = a
	return a.CouponBalance, true, nil
}

func (t *memTx) AddBalance(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if err := t.fail(); err != nil {
		return 0, err
	}
	a, ok := t.store.s.accounts[id]
	if !ok {
		return 0, domain.NotFound("memstore.add_balance", "account", id.String())
	}
	a.CouponBalance += amount
	t.store.s.accounts[id] = a
	return a.CouponBalance, nil
}

func (t *memTx) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := t.fail(); err != nil {
		return 0, err
	}
	a, ok := t.store.s.accounts[id]
	if !ok {
		return 0, domain.NotFound("memstore.balance", "account", id.String())
	}
	return a.CouponBalance, nil
}

func (t *memTx) ConsumeDaily(ctx context.Context, id uuid.UUID, feature, day string) (bool, error) {
	if err := t.fail(); err != nil {
		return false, err
	}
	key := id.String() + "|" + feature
	if last, ok := t.store.s.markers[key]; ok && last >= day {
		return false, nil
	}
	t.store.s.markers[key] = day
	return true, nil
}

func (t *memTx) LastDailyUse(ctx context.Context, id uuid.UUID, feature string) (string, error) {
	if err := t.fail(); err != nil {
		return "", err
	}
	return t.store.s.markers[id.String()+"|"+feature], nil
}

func (t *memTx) InsertMilestone(ctx context.Context, id uuid.UUID, milestoneType string, index int64) (bool, error) {
	if err := t.fail(); err != nil {
		return false, err
	}
	key := fmt.Sprintf("%s|%s|%d", id, milestoneType, index)
	if t.store.s.milestones[key] {
		return false, nil
	}
	t.store.s.milestones[key] = true
	return true, nil
}
