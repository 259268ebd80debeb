package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

func newTestKey(t *testing.T, id string, role domain.Role, allowlist ...string) (*domain.APIKey, string) {
	t.Helper()
	secret, err := domain.GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := domain.HashSecret(secret)
	if err != nil {
		t.Fatal(err)
	}
	return &domain.APIKey{
		ID:         id,
		SecretHash: hash,
		Address:    authority,
		Role:       role,
		Allowlist:  allowlist,
	}, secret
}

func TestAuthService_Authenticate(t *testing.T) {
	issuer, issuerSecret := newTestKey(t, "issuer-1", domain.RoleIssuer)
	restricted, restrictedSecret := newTestKey(t, "restricted", domain.RoleIssuer, "10.0.0.0/8", "192.168.1.7")
	svc := NewAuthService(newMockAPIKeyRepo(issuer, restricted), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *AuthenticateRequest
		wantErr error
	}{
		{"valid", &AuthenticateRequest{KeyID: "issuer-1", KeySecret: issuerSecret, ClientIP: "127.0.0.1"}, nil},
		{"valid cached", &AuthenticateRequest{KeyID: "issuer-1", KeySecret: issuerSecret, ClientIP: "127.0.0.1"}, nil},
		{"wrong secret", &AuthenticateRequest{KeyID: "issuer-1", KeySecret: "clas_wrong", ClientIP: "127.0.0.1"}, domain.ErrAPIKeyInvalid},
		{"unknown key", &AuthenticateRequest{KeyID: "nobody", KeySecret: issuerSecret}, domain.ErrAPIKeyInvalid},
		{"missing id", &AuthenticateRequest{KeySecret: issuerSecret}, domain.ErrAPIKeyMissing},
		{"missing secret", &AuthenticateRequest{KeyID: "issuer-1"}, domain.ErrAPIKeyMissing},
		{"allowlisted cidr", &AuthenticateRequest{KeyID: "restricted", KeySecret: restrictedSecret, ClientIP: "10.1.2.3"}, nil},
		{"allowlisted ip", &AuthenticateRequest{KeyID: "restricted", KeySecret: restrictedSecret, ClientIP: "192.168.1.7"}, nil},
		{"outside allowlist", &AuthenticateRequest{KeyID: "restricted", KeySecret: restrictedSecret, ClientIP: "172.16.0.1"}, domain.ErrPermissionDenied},
		{"unparseable ip", &AuthenticateRequest{KeyID: "restricted", KeySecret: restrictedSecret, ClientIP: "nope"}, domain.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Authenticate(ctx, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Address != authority || p.KeyID != tt.req.KeyID {
				t.Errorf("principal = %+v", p)
			}
		})
	}
}

func TestAuthService_CacheDoesNotAcceptOtherSecrets(t *testing.T) {
	key, secret := newTestKey(t, "k", domain.RoleIssuer)
	svc := NewAuthService(newMockAPIKeyRepo(key), nil)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, &AuthenticateRequest{KeyID: "k", KeySecret: secret}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, &AuthenticateRequest{KeyID: "k", KeySecret: secret + "x"}); !errors.Is(err, domain.ErrAPIKeyInvalid) {
		t.Errorf("err = %v, want ErrAPIKeyInvalid", err)
	}

	svc.InvalidateCache()
	if _, err := svc.Authenticate(ctx, &AuthenticateRequest{KeyID: "k", KeySecret: secret}); err != nil {
		t.Errorf("after invalidate: %v", err)
	}
}

func TestAuthService_GlobalAllowlist(t *testing.T) {
	key, secret := newTestKey(t, "k", domain.RoleIssuer)
	svc := NewAuthService(newMockAPIKeyRepo(key), &AuthServiceConfig{GlobalAllowlist: []string{"127.0.0.1"}})
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, &AuthenticateRequest{KeyID: "k", KeySecret: secret, ClientIP: "127.0.0.1"}); err != nil {
		t.Errorf("allowed ip rejected: %v", err)
	}
	if _, err := svc.Authenticate(ctx, &AuthenticateRequest{KeyID: "k", KeySecret: secret, ClientIP: "8.8.8.8"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAuthService_CheckPermission(t *testing.T) {
	svc := NewAuthService(newMockAPIKeyRepo(), nil)

	tests := []struct {
		name     string
		p        *Principal
		required domain.Role
		wantErr  error
	}{
		{"issuer mints", &Principal{Role: domain.RoleIssuer}, domain.RoleIssuer, nil},
		{"admin mints", &Principal{Role: domain.RoleAdmin}, domain.RoleIssuer, nil},
		{"issuer cannot admin", &Principal{Role: domain.RoleIssuer}, domain.RoleAdmin, domain.ErrPermissionDenied},
		{"no principal", nil, domain.RoleIssuer, domain.ErrAPIKeyMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckPermission(tt.p, tt.required)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_CheckRateLimit(t *testing.T) {
	svc := NewAuthService(newMockAPIKeyRepo(), nil)

	for i := 0; i < 3; i++ {
		if err := svc.CheckRateLimit("10.0.0.1", 3); err != nil {
			t.Fatalf("request %d limited: %v", i, err)
		}
	}
	if err := svc.CheckRateLimit("10.0.0.1", 3); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if err := svc.CheckRateLimit("10.0.0.2", 3); err != nil {
		t.Errorf("separate bucket limited: %v", err)
	}
	if err := svc.CheckRateLimit("10.0.0.1", 0); err != nil {
		t.Errorf("zero limit should disable limiting: %v", err)
	}
}

func TestRateLimiterRegistry(t *testing.T) {
	r := NewRateLimiterRegistry(0)
	l1 := r.GetOrCreate("a", 10)
	l2 := r.GetOrCreate("a", 10)
	if l1 != l2 {
		t.Error("GetOrCreate returned different limiters for the same key")
	}
	r.GetOrCreate("b", 10)
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	r.Delete("a")
	if r.Len() != 1 {
		t.Errorf("Len after delete = %d, want 1", r.Len())
	}
}

func TestRateLimiterRegistry_EvictsIdleBuckets(t *testing.T) {
	r := NewRateLimiterRegistry(150 * time.Millisecond)

	idle := r.GetOrCreate("ip:198.51.100.1", 1)
	busy := r.GetOrCreate("ip:198.51.100.2", 1)

	// Touching a bucket restarts its idle timer.
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		if got := r.GetOrCreate("ip:198.51.100.2", 1); got != busy {
			t.Fatal("active bucket was evicted")
		}
	}
	time.Sleep(60 * time.Millisecond)

	if got := r.GetOrCreate("ip:198.51.100.1", 1); got == idle {
		t.Error("idle bucket was not evicted")
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFrom(ctx); ok {
		t.Error("empty context has a principal")
	}
	p := &Principal{KeyID: "k", Address: authority, Role: domain.RoleIssuer}
	got, ok := PrincipalFrom(WithPrincipal(ctx, p))
	if !ok || got != p {
		t.Errorf("PrincipalFrom = %v, %v", got, ok)
	}
}
