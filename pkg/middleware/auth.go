// Package middleware provides the synchronous transport adapter: it
// extracts bearer credentials from the Authorization header and attaches
// the resulting identity to the request context.
package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/contextkeys"
	"github.com/theschoolhq/gatekeeper/pkg/httputil"
	"github.com/theschoolhq/gatekeeper/pkg/observability"
)

// TokenAuth authenticates requests from the Authorization header.
// Authentication failures never abort the request here; they downgrade it
// to anonymous and leave rejection to RequireAuth or handler-level
// checks. Infrastructure errors (store unreachable) do abort with a 500.
type TokenAuth struct {
	authenticator *auth.TokenAuthenticator
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewTokenAuth creates the header-based authentication middleware.
func NewTokenAuth(authenticator *auth.TokenAuthenticator, logger *observability.Logger, metrics *observability.Metrics) *TokenAuth {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &TokenAuth{
		authenticator: authenticator,
		logger:        logger,
		metrics:       metrics,
	}
}

// Handler wraps an HTTP handler with authentication and request-scoped
// context setup (request ID, referrer, identity).
func (m *TokenAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextkeys.WithRequestID(r.Context(), uuid.NewString())
		if ref := r.Referer(); ref != "" {
			ctx = contextkeys.WithReferrer(ctx, ref)
		}

		identity, token, err := m.authenticator.Authenticate(ctx, []byte(r.Header.Get("Authorization")))
		if err != nil {
			if !auth.IsAuthFailure(err) {
				m.logger.WithError(err).Error("token authentication backend error")
				httputil.WriteInternalError(w, errors.New("authentication backend unavailable"))
				return
			}
			m.countValidation("failure")
			m.logger.WithError(err).
				WithField("request_id", contextkeys.RequestIDFrom(ctx)).
				Debug("token authentication failed, continuing as anonymous")
		}
		if identity != nil {
			m.countValidation("success")
			ctx = contextkeys.WithIdentity(ctx, identity)
			ctx = contextkeys.WithToken(ctx, token)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *TokenAuth) countValidation(result string) {
	if m.metrics != nil {
		m.metrics.TokenValidationsTotal.WithLabelValues("http", result).Inc()
	}
}

// RequireAuth rejects anonymous requests with 401. Chain it after
// TokenAuth on endpoints that must not fail open.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextkeys.IdentityFrom(r.Context()) == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
