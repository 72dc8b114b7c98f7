// Package middleware contains HTTP middleware for the entitlement service.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler. They are designed to be composed using a middleware stack
// approach.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/auth"
	"github.com/dona-app/entitlement/internal/handler"
)

// AccountIDHeader carries the account the calling service is acting for.
// The caller (the DoNa web backend) has already authenticated the end user;
// this service trusts the header only on requests bearing the service token.
const AccountIDHeader = "X-Account-ID"

// ServiceAuthMiddleware authenticates calls from the application backend via
// a shared bearer token and resolves the acting account from a header.
type ServiceAuthMiddleware struct {
	token  string
	logger *slog.Logger
}

// NewServiceAuthMiddleware creates a new service auth middleware.
func NewServiceAuthMiddleware(token string, logger *slog.Logger) *ServiceAuthMiddleware {
	return &ServiceAuthMiddleware{
		token:  token,
		logger: logger,
	}
}

// RequireService rejects requests without a valid service token or a
// well-formed account header, and stores the account ID in the context.
func (m *ServiceAuthMiddleware) RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		accountID, err := uuid.Parse(r.Header.Get(AccountIDHeader))
		if err != nil || accountID == uuid.Nil {
			m.logger.Info("missing or malformed account header", "path", r.URL.Path)
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetAccountID(r.Context(), accountID)))
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

// Stack composes middleware so the first argument is the outermost wrapper.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
