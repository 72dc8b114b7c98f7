// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles. The entitlement service does not
// authenticate end users itself, the calling backend does. It only carries
// the acting account ID through the request context.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// accountContextKey is the key used to store the acting account ID.
	accountContextKey contextKey = "account_id"
)

// GetAccountID retrieves the acting account ID from the context.
// Returns uuid.Nil when the request was not authenticated.
func GetAccountID(ctx context.Context) uuid.UUID {
	id, ok := ctx.Value(accountContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

// SetAccountID stores the acting account ID in the context.
func SetAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountContextKey, id)
}
