package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// APIKeyRepository defines the lookup interface for API keys.
type APIKeyRepository interface {
	// Get retrieves an API key by ID.
	Get(ctx context.Context, keyID string) (*domain.APIKey, error)

	// List retrieves all API keys.
	List(ctx context.Context) ([]*domain.APIKey, error)
}

// Principal is an authenticated caller.
type Principal struct {
	KeyID   string
	Address domain.Address
	Role    domain.Role
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// AuthService handles API key authentication and authorization.
type AuthService struct {
	repo         APIKeyRepository
	verified     *cache.Cache
	rateLimiters *RateLimiterRegistry
	globalAllow  []string
}

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	// CacheTTL is how long a verified key/secret pair skips Argon2 (default: 60s).
	CacheTTL time.Duration

	// GlobalAllowlist is the global IP/CIDR allowlist (empty = no restriction).
	GlobalAllowlist []string

	// RateLimiterIdleTTL evicts rate limit buckets unused this long (default: 10m).
	RateLimiterIdleTTL time.Duration
}

// DefaultAuthServiceConfig returns default configuration.
func DefaultAuthServiceConfig() *AuthServiceConfig {
	return &AuthServiceConfig{
		CacheTTL:           60 * time.Second,
		GlobalAllowlist:    []string{},
		RateLimiterIdleTTL: defaultLimiterIdleTTL,
	}
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo APIKeyRepository, config *AuthServiceConfig) *AuthService {
	if config == nil {
		config = DefaultAuthServiceConfig()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 60 * time.Second
	}

	return &AuthService{
		repo:         repo,
		verified:     cache.New(config.CacheTTL, 2*config.CacheTTL),
		rateLimiters: NewRateLimiterRegistry(config.RateLimiterIdleTTL),
		globalAllow:  config.GlobalAllowlist,
	}
}

// AuthenticateRequest contains parameters for API key authentication.
type AuthenticateRequest struct {
	KeyID     string
	KeySecret string
	ClientIP  string
}

// Authenticate validates an API key and returns the caller it stands for.
func (s *AuthService) Authenticate(ctx context.Context, req *AuthenticateRequest) (*Principal, error) {
	if req.KeyID == "" || req.KeySecret == "" {
		return nil, domain.ErrAPIKeyMissing
	}

	// 1. Look up the key definition
	key, err := s.repo.Get(ctx, req.KeyID)
	if err != nil {
		return nil, domain.ErrAPIKeyInvalid.WithCause(err)
	}

	// 2. Check IP allowlist (global + key-specific)
	if err := s.checkIPAllowlist(req.ClientIP, key.Allowlist); err != nil {
		return nil, err
	}

	// 3. Verify secret (Argon2, skipped for a recently verified pair)
	fingerprint := secretFingerprint(key.ID, key.SecretHash, req.KeySecret)
	if _, ok := s.verified.Get(fingerprint); !ok {
		if !key.Verify(req.KeySecret) {
			return nil, domain.ErrAPIKeyInvalid.WithDetails("invalid secret")
		}
		s.verified.SetDefault(fingerprint, struct{}{})
	}

	return &Principal{
		KeyID:   key.ID,
		Address: key.Address,
		Role:    key.Role,
	}, nil
}

// CheckPermission checks if a principal's role grants required.
func (s *AuthService) CheckPermission(p *Principal, required domain.Role) error {
	if p == nil {
		return domain.ErrAPIKeyMissing
	}
	if !p.Role.Allows(required) {
		return domain.ErrPermissionDenied.WithDetails(
			"role " + string(p.Role) + " cannot act as " + string(required),
		)
	}
	return nil
}

// CheckRateLimit checks if the bucket identified by key has exceeded limit requests per second.
func (s *AuthService) CheckRateLimit(key string, limit int) error {
	if limit <= 0 {
		return nil
	}
	limiter := s.rateLimiters.GetOrCreate(key, limit)

	if !limiter.Allow() {
		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		return domain.ErrRateLimited.WithDetails("rate limit exceeded, retry after " + delay.String())
	}
	return nil
}

// InvalidateCache drops every cached verification, e.g. after keys are reloaded.
func (s *AuthService) InvalidateCache() {
	s.verified.Flush()
}

// checkIPAllowlist checks if the client IP is in the allowlist.
func (s *AuthService) checkIPAllowlist(clientIP string, keyAllowlist []string) error {
	allowlist := make([]string, 0, len(s.globalAllow)+len(keyAllowlist))
	allowlist = append(allowlist, s.globalAllow...)
	allowlist = append(allowlist, keyAllowlist...)

	if len(allowlist) == 0 {
		return nil
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return domain.ErrPermissionDenied.WithDetails("invalid client IP format")
	}

	for _, entry := range allowlist {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				continue
			}
			if ipNet.Contains(ip) {
				return nil
			}
		} else if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(ip) {
			return nil
		}
	}

	return domain.ErrPermissionDenied.WithDetails("client IP not in allowlist")
}

// secretFingerprint identifies a (key, hash, secret) triple without keeping the secret.
// Including the stored hash invalidates the entry when a key is rotated.
func secretFingerprint(keyID, hash, secret string) string {
	sum := sha256.Sum256([]byte(keyID + "\x00" + hash + "\x00" + secret))
	return hex.EncodeToString(sum[:])
}

// ============================================================================
// RateLimiterRegistry - Rate Limiter Management
// ============================================================================

// defaultLimiterIdleTTL is how long an unused bucket is kept.
const defaultLimiterIdleTTL = 10 * time.Minute

// RateLimiterRegistry manages one rate limiter per bucket key. A bucket
// unused for the idle TTL is evicted, so per-IP keys stay bounded.
type RateLimiterRegistry struct {
	mu       sync.Mutex
	limiters *cache.Cache
}

// NewRateLimiterRegistry creates a registry evicting buckets idle for idleTTL
// (default 10m).
func NewRateLimiterRegistry(idleTTL time.Duration) *RateLimiterRegistry {
	if idleTTL <= 0 {
		idleTTL = defaultLimiterIdleTTL
	}
	return &RateLimiterRegistry{
		limiters: cache.New(idleTTL, idleTTL/2),
	}
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
// Either way the bucket's idle timer restarts.
func (r *RateLimiterRegistry) GetOrCreate(key string, limit int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.limiters.Get(key); ok {
		limiter := v.(*rate.Limiter)
		r.limiters.SetDefault(key, limiter)
		return limiter
	}

	// limit requests per second, burst = limit
	limiter := rate.NewLimiter(rate.Limit(limit), limit)
	r.limiters.SetDefault(key, limiter)
	return limiter
}

// Delete removes a rate limiter.
func (r *RateLimiterRegistry) Delete(key string) {
	r.limiters.Delete(key)
}

// Len returns the number of limiters, including expired ones not yet evicted.
func (r *RateLimiterRegistry) Len() int {
	return r.limiters.ItemCount()
}
