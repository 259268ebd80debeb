package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/infra/confloader"
	"github.com/yndnr/claimledger-go/internal/infra/shutdown"
	"github.com/yndnr/claimledger-go/internal/storage/memory"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

const testAuthority = "0x1111111111111111111111111111111111111111"

func writeConfig(t *testing.T, path, level, keyID, hash string) {
	t.Helper()
	data := fmt.Sprintf(`registry:
  authority: %q
log:
  level: %s
security:
  api_keys:
    - id: %s
      secret_hash: %q
      address: %q
      role: issuer
`, testAuthority, level, keyID, hash, testAuthority)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func newTestReloader(t *testing.T, path string) (*reloader, *memory.APIKeyStore, *service.AuthService) {
	t.Helper()
	keys := memory.NewAPIKeyStore()
	auth := service.NewAuthService(keys, nil)
	return &reloader{
		loader: confloader.NewLoader(confloader.WithConfigFile(path)),
		keys:   keys,
		auth:   auth,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, keys, auth
}

func TestReloader_AppliesKeysAndLevel(t *testing.T) {
	t.Cleanup(func() { logger.SetLevel("info") })

	secret := "clas_reload_secret_0001"
	hash, err := domain.HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeConfig(t, path, "debug", "issuer-1", hash)

	r, keys, auth := newTestReloader(t, path)
	if err := r.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}
	key, err := keys.Get(context.Background(), "issuer-1")
	if err != nil {
		t.Fatalf("key not loaded: %v", err)
	}
	if key.Address != domain.MustParseAddress(testAuthority) {
		t.Errorf("address = %s", key.Address)
	}

	p, err := auth.Authenticate(context.Background(), &service.AuthenticateRequest{
		KeyID:     "issuer-1",
		KeySecret: secret,
		ClientIP:  "127.0.0.1",
	})
	if err != nil || p.Role != domain.RoleIssuer {
		t.Fatalf("Authenticate = %+v, %v", p, err)
	}

	// Rotating the key takes effect on the next reload.
	rotated, err := domain.HashSecret("clas_reload_secret_0002")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	writeConfig(t, path, "info", "issuer-1", rotated)
	if err := r.reload(); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if _, err := auth.Authenticate(context.Background(), &service.AuthenticateRequest{
		KeyID:     "issuer-1",
		KeySecret: secret,
		ClientIP:  "127.0.0.1",
	}); err == nil {
		t.Error("old secret still accepted after rotation")
	}
	if got := logger.GetLevel(); got != "info" {
		t.Errorf("level = %q, want info", got)
	}
}

func TestReloader_InvalidConfigKeepsKeys(t *testing.T) {
	hash, err := domain.HashSecret("clas_reload_secret_0003")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeConfig(t, path, "info", "issuer-1", hash)

	r, keys, _ := newTestReloader(t, path)
	if err := r.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	writeConfig(t, path, "info", "issuer-1", "plaintext")
	if err := r.reload(); err == nil {
		t.Fatal("reload accepted a key without an argon2id hash")
	}
	if _, err := keys.Get(context.Background(), "issuer-1"); err != nil {
		t.Errorf("previous keys dropped: %v", err)
	}
}

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	t.Cleanup(func() { logger.SetLevel("info") })

	hash, err := domain.HashSecret("clas_reload_secret_0004")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeConfig(t, path, "info", "issuer-1", hash)

	r, keys, _ := newTestReloader(t, path)
	sh := shutdown.NewHandler(time.Second, r.log)
	if err := watchConfig(path, r, r.log, sh); err != nil {
		t.Fatalf("watchConfig: %v", err)
	}
	t.Cleanup(func() { sh.Shutdown() })

	writeConfig(t, path, "info", "issuer-2", hash)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := keys.Get(context.Background(), "issuer-2"); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("config change was not picked up")
}
