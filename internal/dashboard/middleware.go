package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"infraiq/platform/internal/backend"
	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/metrics"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/session"
)

const requestIDHeader = "X-Request-Id"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
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
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, u model.User)

// withUser resolves the session and then the backend user before calling h.
func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.sessions.Resolve(r.Context(), r)
		if err != nil {
			s.fail(w, r, err, "resolve session")
			return
		}
		u, err := s.admin.GetOrCreateUser(r.Context(), id.SessionID, id.Email, id.Name)
		if err != nil {
			s.fail(w, r, err, "resolve user")
			return
		}
		ctx := logger.ToContext(r.Context(), logger.From(r.Context()).With(zap.String("user_id", u.ID)))
		h(w, r.WithContext(ctx), u)
	}
}

// statusFor maps an error to the status and generic message sent to the browser.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail logs err and writes the generic response for it. Backend error text
// never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, msg := statusFor(err)
	log := logger.From(r.Context()).With(zap.String("op", op), zap.Error(err), zap.Int("status", status))
	switch {
	case errors.Is(err, backend.ErrMissingCredential):
		log.Error("user has no api key")
	case status >= http.StatusInternalServerError:
		log.Error("request failed")
	default:
		log.Info("request rejected")
	}
	writeError(w, status, msg)
}

func (s *Server) logWidgetError(r *http.Request, name string, err error) {
	logger.From(r.Context()).Warn("widget failed", zap.String("widget", name), zap.Error(err))
}
