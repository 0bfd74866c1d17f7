// Package session resolves the signed-in identity of a dashboard request from
// a token issued by the auth provider.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is what the auth provider vouches for. SessionID is the provider's
// stable user id.
type Identity struct {
	SessionID string
	Email     string
	Name      string
}

type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (Identity, error)
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens carried either as a bearer token or in
// the session cookie.
type JWTResolver struct {
	key        []byte
	cookieName string
}

// minSecretLen is the HS256 key size.
const minSecretLen = 32

var ErrWeakSecret = errors.New("session secret must be at least 32 bytes")

func NewJWTResolver(secret, cookieName string) (*JWTResolver, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	return &JWTResolver{key: []byte(secret), cookieName: cookieName}, nil
}

func (j *JWTResolver) Resolve(_ context.Context, r *http.Request) (Identity, error) {
	raw := tokenFromRequest(r, j.cookieName)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}

	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub := strings.TrimSpace(c.Subject)
	email := strings.TrimSpace(c.Email)
	if sub == "" || email == "" {
		return Identity{}, fmt.Errorf("%w: token lacks subject or email", ErrUnauthenticated)
	}
	return Identity{SessionID: sub, Email: email, Name: strings.TrimSpace(c.Name)}, nil
}

// Issue signs a token for id. The auth provider does this in production;
// tests use it to mint sessions.
func (j *JWTResolver) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.key)
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	}
	if cookieName == "" {
		return ""
	}
	if ck, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}
