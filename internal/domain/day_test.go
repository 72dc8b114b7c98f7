package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceDay(t *testing.T) {
	tests := []struct {
		name string
		utc  time.Time
		want string
	}{
		{
			name: "midday UTC and KST agree",
			utc:  time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), // 12:00 KST
			want: "2026-03-01",
		},
		{
			name: "late UTC evening is already the next KST day",
			utc:  time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC), // 01:30 KST Mar 2
			want: "2026-03-02",
		},
		{
			name: "one second before KST midnight",
			utc:  time.Date(2026, 3, 1, 14, 59, 59, 0, time.UTC), // 23:59:59 KST Mar 1
			want: "2026-03-01",
		},
		{
			name: "one second after KST midnight",
			utc:  time.Date(2026, 3, 1, 15, 0, 1, 0, time.UTC), // 00:00:01 KST Mar 2
			want: "2026-03-02",
		},
		{
			name: "non-UTC input is classified by its instant",
			utc:  time.Date(2026, 3, 1, 23, 0, 0, 0, time.FixedZone("EST", -5*60*60)), // 13:00 KST Mar 2
			want: "2026-03-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferenceDay(tt.utc))
		})
	}
}
