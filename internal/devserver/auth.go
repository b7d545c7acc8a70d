package devserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackdojo/hackdojo/internal/api"
)

var errInvalidToken = errors.New("invalid token")

type accessClaims struct {
	Role api.Role `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t tokenIssuer) issue(a account) (string, error) {
	now := t.now().UTC()
	claims := accessClaims{
		Role: a.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(a.id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// verify checks signature and expiry and returns the account id.
func (t tokenIssuer) verify(raw string) (int, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, errInvalidToken
	}
	return id, nil
}

type principal struct {
	id   int
	role api.Role
}

type principalKey struct{}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// authenticate resolves the bearer token to a live account. The role comes
// from the account, not the token, so role changes apply immediately.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization token")
			return
		}
		id, err := s.tokens.verify(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		a, ok := s.dir.get(id)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Account no longer exists")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal{id: a.id, role: a.role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(role api.Role, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := principalFrom(r.Context()); !ok || p.role != role {
				writeError(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
