package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// ClaimCounts are the registry sizes the query benchmarks run against.
var ClaimCounts = []int{1000, 10000, 100000}

// SmallClaimCounts for quick benchmarks.
var SmallClaimCounts = []int{1000, 10000}

// holderCount is how many distinct owners prefilled claims spread over.
const holderCount = 1000

var authority = domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// holderAddress returns a deterministic owner address for index i.
func holderAddress(i int) domain.Address {
	return domain.MustParseAddress(fmt.Sprintf("0x%040x", i+1))
}

// claimData returns a structured claim payload.
func claimData(i int) string {
	return fmt.Sprintf(`{"type":"membership","title":"seat %d","attributes":[{"trait_type":"tier","value":"gold"}]}`, i)
}

// registryEnv is an initialized registry on a local committer.
type registryEnv struct {
	repo     service.LedgerRepository
	registry *service.RegistryService
	query    *service.QueryService
}

func newRegistryEnv(b *testing.B, repo service.LedgerRepository) *registryEnv {
	b.Helper()
	ctx := context.Background()

	ledger := service.NewLedger(repo, service.WithLedgerLogger(discard))
	committer := service.NewLocalCommitter(ledger, service.LocalCommitterConfig{Logger: discard})
	if err := committer.Start(ctx); err != nil {
		b.Fatalf("Start: %v", err)
	}
	b.Cleanup(func() { committer.Close() })

	registry := service.NewRegistryService(ledger, committer, &service.RegistryServiceConfig{Logger: discard})
	if err := registry.EnsureInitialized(ctx, authority.String()); err != nil {
		b.Fatalf("EnsureInitialized: %v", err)
	}
	return &registryEnv{
		repo:     repo,
		registry: registry,
		query:    service.NewQueryService(repo),
	}
}

// mint commits one claim for owner and waits for it.
func (e *registryEnv) mint(b *testing.B, owner domain.Address, i int) domain.TokenID {
	conf, err := e.registry.MintAndWait(context.Background(), &service.MintRequest{
		Caller:      authority,
		Owner:       owner.String(),
		MetadataURI: fmt.Sprintf("ipfs://claims/%d", i),
		ClaimData:   claimData(i),
	})
	if err != nil {
		b.Fatalf("mint %d: %v", i, err)
	}
	return conf.TokenID
}

// prefill mints count claims spread over holderCount owners.
func (e *registryEnv) prefill(b *testing.B, count int) {
	b.Helper()
	for i := 0; i < count; i++ {
		e.mint(b, holderAddress(i%holderCount), i)
	}
}

// reportMemory reports heap usage after a GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithClaimCounts runs benchFn once per registry size.
func runWithClaimCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("claims_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
