package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MilestoneType names a monotonically increasing completion count that
// triggers one-time rewards at fixed intervals.
type MilestoneType string

// MilestoneStoryCompletion counts completed escape-room stories; every
// policy-configured step grants a coupon.
const MilestoneStoryCompletion MilestoneType = "story-completion"

// UsageRecord is one persisted resource instance (a collage, a memory, a
// completion event). Rows are immutable once written; the live count per
// (account, kind) is what capacity limits compare against.
type UsageRecord struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Kind      string
	Payload   json.RawMessage // optional caller-supplied metadata
	CreatedAt time.Time
}

// StoreResult is the outcome of a capacity-gated store attempt. A denial is
// an expected outcome, not an error: Used and Limit always carry the concrete
// numbers so the caller can render "5 of 5 used" style messaging directly.
type StoreResult struct {
	Allowed bool
	Used    int64 // live count after the operation (unchanged when denied)
	Limit   int64 // Unlimited when the tier is unbounded
	Record  *UsageRecord
}

// SpendResult is the outcome of a balance spend. Remaining is the
// post-operation balance regardless of success and is always >= 0.
type SpendResult struct {
	Spent     bool
	Remaining int64
}

// DailyResult is the outcome of a daily-gated consumption attempt.
type DailyResult struct {
	Allowed          bool
	AlreadyUsedToday bool
	Day              string // reference-timezone calendar day, YYYY-MM-DD
}

// CompletionResult is the outcome of recording a completion event.
type CompletionResult struct {
	Count          int64 // completion count including this event
	RewardGranted  bool
	MilestoneIndex int64 // count / step, meaningful only when RewardGranted
	Balance        int64 // coupon balance after any reward credit
}

// KindUsage is one row of a usage snapshot.
type KindUsage struct {
	Kind  ResourceKind
	Used  int64
	Limit int64
}

// UsageSnapshot is a read-only view of an account's standing against every
// limit, sufficient for the caller to render an upgrade prompt without a
// second query.
type UsageSnapshot struct {
	AccountID     uuid.UUID
	Tier          Tier // effective tier at snapshot time
	Capacities    []KindUsage
	CouponBalance int64
	AIUsedToday   bool
}
