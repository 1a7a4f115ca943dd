// Package auth verifies bearer tokens issued by the hosted auth provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience the provider stamps on signed-in sessions.
const DefaultAudience = "authenticated"

// Claims is the subset of provider access-token claims the service reads.
type Claims struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// HS256Verifier checks tokens locally with the project's JWT secret.
type HS256Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

var _ domain.TokenVerifier = (*HS256Verifier)(nil)

func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{
		secret:   []byte(secret),
		audience: DefaultAudience,
		leeway:   30 * time.Second,
	}
}

func (v *HS256Verifier) VerifyToken(_ context.Context, raw string) (*models.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, domain.ErrInvalidToken
	}
	// The public anon key is itself a signed token without a subject.
	if claims.Subject == "" || claims.Role == "anon" {
		return nil, fmt.Errorf("%w: token has no user subject", domain.ErrInvalidToken)
	}

	return &models.Identity{ID: claims.Subject, Email: claims.Email, Phone: claims.Phone}, nil
}

// SignToken issues a provider-shaped access token. Used by tests and local
// tooling against the self-hosted backends.
func SignToken(secret string, id models.Identity, ttl time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("identity id is required")
	}
	now := time.Now()
	c := Claims{
		Email: id.Email,
		Phone: id.Phone,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Audience:  jwt.ClaimStrings{DefaultAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
