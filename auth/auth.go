// Package auth issues and verifies the bearer credential and carries the
// authenticated user id through the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diewo77/emotion-tracker/httpx"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

// UserVerifier is an optional callback to validate that a credential's user
// still exists. Set during app bootstrap via SetUserVerifier. If nil, no
// extra verification is performed.
type UserVerifier func(ctx context.Context, uid uint) bool

var verifier UserVerifier

// SetUserVerifier configures the global verifier used by RequireAuth.
func SetUserVerifier(v UserVerifier) { verifier = v }

// Issuer signs and verifies HS256 bearer tokens binding a user id with a
// fixed validity window.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer. ttl is the credential's validity window.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the user, valid from now until now+ttl.
func (i *Issuer) Issue(userID uint) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	})
	return token.SignedString(i.secret)
}

var errInvalidToken = errors.New("invalid token")

// Verify parses and validates a token string and returns the bound user id.
// Expired, tampered, or wrong-algorithm tokens are rejected.
func (i *Issuer) Verify(tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, errInvalidToken
	}
	id64, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id64 == 0 {
		return 0, errInvalidToken
	}
	return uint(id64), nil
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	if strings.HasPrefix(h, "Bearer ") {
		h = strings.TrimPrefix(h, "Bearer ")
	}
	return strings.TrimSpace(h), h != ""
}

// WithUserID stores the user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(userIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// Middleware attaches the user id to the request context when a valid bearer
// credential is present. It never rejects on its own; see RequireAuth.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := BearerToken(r); ok {
			if uid, err := i.Verify(tok); err == nil {
				r = r.WithContext(WithUserID(r.Context(), uid))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a verified user id with a 401 JSON
// error. When a verifier is configured, credentials of deleted users are
// rejected the same way.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok || uid == 0 {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		if verifier != nil && !verifier(r.Context(), uid) {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
