package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/metrics"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

const (
	requestIDHeader   = "X-Request-Id"
	apiKeyHeader      = "X-API-Key"
	internalKeyHeader = "X-Internal-Key"
)

type contextKey string

const ctxUser contextKey = "user"

func userFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(ctxUser).(model.User)
	return u, ok
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(requestIDHeader) == "" {
			var b [12]byte
			_, _ = rand.Read(b[:])
			r.Header.Set(requestIDHeader, hex.EncodeToString(b[:]))
		}
		w.Header().Set(requestIDHeader, r.Header.Get(requestIDHeader))
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(base *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := base.With(zap.String("request_id", r.Header.Get(requestIDHeader)))
		rec := &metrics.StatusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), l)))

		l.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic", zap.Any("recovered", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "panic", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type routeScope int

const (
	scopePublic routeScope = iota
	scopeAdmin
	scopeInternal
	scopeUser
)

func scopeFor(path string) routeScope {
	switch {
	case path == "/health", path == "/metrics", path == "/api/sync/status":
		return scopePublic
	case path == "/api/users/me":
		return scopeAdmin
	case strings.HasPrefix(path, "/api/license/"):
		return scopeInternal
	case strings.HasPrefix(path, "/api/"):
		return scopeUser
	default:
		return scopePublic
	}
}

// authMiddleware enforces the credential each route accepts. The admin key
// only resolves identities; it is rejected on every user data route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.From(r.Context())

		switch scopeFor(r.URL.Path) {
		case scopePublic:
			next.ServeHTTP(w, r)

		case scopeAdmin:
			if !keysEqual(apiKeyFromRequest(r), s.cfg.AdminKey) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
				return
			}
			next.ServeHTTP(w, r)

		case scopeInternal:
			if s.cfg.InternalServiceKey == "" {
				log.Warn("internal service key not configured")
			}
			if !keysEqual(strings.TrimSpace(r.Header.Get(internalKeyHeader)), s.cfg.InternalServiceKey) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid internal key")
				return
			}
			next.ServeHTTP(w, r)

		case scopeUser:
			key := apiKeyFromRequest(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
				return
			}
			if keysEqual(key, s.cfg.AdminKey) {
				log.Warn("admin key used on user data route", zap.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
				return
			}
			u, err := s.userForKey(r.Context(), key)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
					return
				}
				log.Error("api key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal", "failed to authenticate")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, u)))
		}
	})
}

// apiKeyFromRequest reads X-API-Key, falling back to a bearer token so the CLI
// can send its key either way.
func apiKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	}
	return ""
}

func keysEqual(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) userForKey(ctx context.Context, key string) (model.User, error) {
	if !strings.HasPrefix(key, model.APIKeyPrefix) {
		return model.User{}, store.ErrNotFound
	}
	if v, ok := s.keys.Get(key); ok {
		return v.(model.User), nil
	}
	u, err := s.store.GetUserByAPIKey(ctx, key)
	if err != nil {
		return model.User{}, err
	}
	s.keys.SetDefault(key, u)
	return u, nil
}

func (s *Server) forgetKey(key string) {
	s.keys.Delete(key)
}
