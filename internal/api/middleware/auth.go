package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/inkpipe/internal/api/shared"
)

var (
	// ErrInvalidToken is returned for malformed tokens or bad signatures.
	ErrInvalidToken = errors.New("invalid service token")

	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("service token expired")
)

// ServiceAuth authenticates scheduler calls with HS256 service tokens
// signed by the shared trigger secret.
type ServiceAuth struct {
	secret    []byte
	clockSkew time.Duration
	now       func() time.Time
}

// NewServiceAuth creates a ServiceAuth for secret.
func NewServiceAuth(secret string) *ServiceAuth {
	return &ServiceAuth{
		secret:    []byte(secret),
		clockSkew: 30 * time.Second,
		now:       time.Now,
	}
}

// IssueToken signs a token for subject valid for ttl. Schedulers that
// cannot sign their own tokens use it through the CLI.
func (a *ServiceAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses token and returns its subject. Tokens must be
// HS256 and carry an expiry.
func (a *ServiceAuth) ValidateToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.clockSkew),
		jwt.WithTimeFunc(a.now),
	)
	switch {
	case err == nil:
		return claims.Subject, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// Authenticate rejects requests without a valid bearer service token and
// stores the token subject in the request context.
func (a *ServiceAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		subject, err := a.ValidateToken(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				message = "Token expired"
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, message, err)
			return
		}

		ctx := context.WithValue(r.Context(), shared.SubjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
