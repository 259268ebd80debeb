package main

import (
	"context"
	"testing"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/server/config"
	"github.com/yndnr/claimledger-go/internal/storage/memory"
)

func TestStatusReporter(t *testing.T) {
	store := memory.New()
	ledger := service.NewLedger(store)
	committer := service.NewLocalCommitter(ledger, service.LocalCommitterConfig{})
	if err := committer.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { committer.Close() })

	registry := service.NewRegistryService(ledger, committer, nil)
	if err := registry.EnsureInitialized(context.Background(), testAuthority); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}

	cfg := config.Default()
	report := statusReporter(time.Now().Add(-time.Minute), cfg, registry, service.NewQueryService(store), nil)

	v, err := report(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	st, ok := v.(*nodeStatus)
	if !ok {
		t.Fatalf("status type = %T", v)
	}
	if !st.Writable || st.Storage != config.EngineMemory || st.Cluster != nil {
		t.Errorf("status = %+v", st)
	}
	if !st.Registry.Initialized || st.Registry.Authority.String() != testAuthority {
		t.Errorf("registry = %+v", st.Registry)
	}
	if st.Uptime != "1m0s" {
		t.Errorf("uptime = %q", st.Uptime)
	}
}
