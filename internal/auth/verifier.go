package auth

import (
	"time"

	"consultdesk/internal/domain"

	"github.com/rs/zerolog"
)

// Options selects how tokens are checked.
type Options struct {
	JWTSecret string
	Remote    domain.TokenVerifier
	Cache     domain.CacheRepository
	CacheTTL  time.Duration
}

// NewVerifier prefers local verification when the JWT secret is known and
// falls back to the remote verifier, cached when a cache is supplied. It
// returns nil when neither source is configured.
func NewVerifier(opts Options, logger *zerolog.Logger) domain.TokenVerifier {
	if opts.JWTSecret != "" {
		return NewHS256Verifier(opts.JWTSecret)
	}
	if opts.Remote == nil {
		return nil
	}
	if opts.Cache != nil && opts.CacheTTL > 0 {
		return NewCachingVerifier(opts.Remote, opts.Cache, opts.CacheTTL, logger)
	}
	return opts.Remote
}
