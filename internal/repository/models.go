package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Account struct {
	ID            uuid.UUID
	Tier          string
	TierExpiresAt sql.NullTime
	CouponBalance int64
	CreatedAt     time.Time
}

type UsageRecord struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Kind      string
	Payload   pqtype.NullRawMessage
	CreatedAt time.Time
}

type DailyUsageMarker struct {
	AccountID   uuid.UUID
	Feature     string
	LastUsedDay string
	UpdatedAt   time.Time
}

type MilestoneReward struct {
	AccountID      uuid.UUID
	MilestoneType  string
	MilestoneIndex int64
	GrantedAt      time.Time
}
