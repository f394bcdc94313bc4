package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/metrics"
	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/repository"
)

// AccountSource resolves stored accounts for authentication.
type AccountSource interface {
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// CredentialCache remembers recently verified credential digests so the
// adaptive hash is not recomputed on every request. Implementations must
// treat backend failures as misses.
type CredentialCache interface {
	GetVerifiedCredential(ctx context.Context, digest string) string
	SetVerifiedCredential(ctx context.Context, digest, email string) error
}

// BasicAuthConfig holds configuration for the Basic-auth middleware.
type BasicAuthConfig struct {
	Logger   *slog.Logger
	Accounts AccountSource
	Hasher   auth.PasswordHasher
	// Cache is optional; nil disables credential caching.
	Cache CredentialCache
	// Recorder is optional; nil discards metrics.
	Recorder metrics.Recorder
}

// BasicAuth authenticates requests with HTTP Basic credentials against the
// account directory and records the verified email as the request identity.
// The identity a handler sees comes only from here, never from a payload.
func BasicAuth(cfg BasicAuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok || email == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_credentials"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthFailure("missing_credentials")
				writeAuthError(w)
				return
			}

			digest := auth.QuickHash(email + ":" + password)

			if cfg.Cache != nil {
				if cached := cfg.Cache.GetVerifiedCredential(r.Context(), digest); cached == email {
					recorder.IncAuthCacheHit()
					ctx := auth.ContextWithIdentity(r.Context(), email)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				recorder.IncAuthCacheMiss()
			}

			account, err := cfg.Accounts.GetAccountByEmail(r.Context(), email)
			if err != nil {
				if !errors.Is(err, repository.ErrAccountNotFound) {
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					recorder.IncAuthFailure("backend_error")
				} else {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", "unknown_account"),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					recorder.IncAuthFailure("unknown_account")
				}
				writeAuthError(w)
				return
			}

			if err := cfg.Hasher.Compare(password, account.PasswordHash); err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "bad_password"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthFailure("bad_password")
				writeAuthError(w)
				return
			}

			if cfg.Cache != nil {
				_ = cfg.Cache.SetVerifiedCredential(r.Context(), digest, email)
			}

			ctx := auth.ContextWithIdentity(r.Context(), email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"invalid or missing credentials"}`))
}
