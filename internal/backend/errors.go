package backend

import "errors"

var (
	// ErrUnauthorized means the backend rejected the credential (401/403).
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrNotFound     = errors.New("backend: not found")
	// ErrMissingCredential is returned before any request is made when the
	// user has no personal API key.
	ErrMissingCredential = errors.New("backend: user has no api key")
	// ErrUpstream covers transport failures, 5xx and malformed responses.
	ErrUpstream = errors.New("backend: upstream error")
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
