package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const identityCachePrefix = "identity:"

// CachingVerifier remembers identities resolved by a slower verifier (the
// remote auth endpoint) for a short TTL. Only successes are cached, and never
// past the token's own exp claim.
type CachingVerifier struct {
	next   domain.TokenVerifier
	cache  domain.CacheRepository
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

var _ domain.TokenVerifier = (*CachingVerifier)(nil)

func NewCachingVerifier(next domain.TokenVerifier, cache domain.CacheRepository, ttl time.Duration, logger *zerolog.Logger) *CachingVerifier {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "auth_cache").Logger()
	}
	return &CachingVerifier{next: next, cache: cache, ttl: ttl, now: time.Now, logger: l}
}

func (v *CachingVerifier) VerifyToken(ctx context.Context, token string) (*models.Identity, error) {
	key := identityCachePrefix + tokenHash(token)

	if raw, ok, err := v.cache.GetCache(ctx, key); err == nil && ok {
		var id models.Identity
		if json.Unmarshal(raw, &id) == nil && id.ID != "" {
			return &id, nil
		}
	}

	id, err := v.next.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := v.cacheTTL(token)
	if ttl <= 0 {
		return id, nil
	}
	if data, err := json.Marshal(id); err == nil {
		if err := v.cache.SetCache(ctx, key, data, ttl); err != nil {
			v.logger.Warn().Err(err).Msg("failed to cache identity")
		}
	}
	return id, nil
}

// cacheTTL clamps the configured TTL to the token's remaining lifetime.
// Zero means the token has no readable future exp and must not be cached.
// The signature is not checked here; next already accepted the token.
func (v *CachingVerifier) cacheTTL(token string) time.Duration {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Sub(v.now())
	if remaining <= 0 {
		return 0
	}
	if v.ttl > 0 && v.ttl < remaining {
		return v.ttl
	}
	return remaining
}

// tokenHash keeps raw bearer tokens out of the cache keyspace.
func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
