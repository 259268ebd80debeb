package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

func TestRegistry_ObserveMint(t *testing.T) {
	r := NewRegistry()
	r.ObserveMint(domain.MintedEvent{TokenID: 1})
	r.ObserveMint(domain.MintedEvent{TokenID: 2})

	if got := testutil.ToFloat64(r.MintsTotal); got != 2 {
		t.Errorf("mints_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.LastMintedID); got != 2 {
		t.Errorf("last_minted_token_id = %v, want 2", got)
	}
}

func TestRegistry_ObserveRequest(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest("POST", "/v1/claims", 202, 15*time.Millisecond)
	r.ObserveRequest("POST", "/v1/claims", 202, 5*time.Millisecond)
	r.ObserveRequest("GET", "/v1/claims/{id}", 404, time.Millisecond)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("POST", "/v1/claims", "202")); got != 2 {
		t.Errorf("requests_total{POST,202} = %v", got)
	}
	if got := testutil.CollectAndCount(r.RequestDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveMint(domain.MintedEvent{TokenID: 7})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"claimledger_mints_total 1", "claimledger_last_minted_token_id 7", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegistry_Isolated(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.ObserveMint(domain.MintedEvent{TokenID: 1})
	if testutil.ToFloat64(b.MintsTotal) != 0 {
		t.Error("registries should not share metrics")
	}
}

func TestLedgerCollector(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := NewLedgerCollector(func() (LedgerStats, error) {
			return LedgerStats{Initialized: true, TotalSupply: 3, LastCommit: 9}, nil
		})
		expected := `
# HELP claimledger_registry_total_supply Number of claim tokens minted.
# TYPE claimledger_registry_total_supply gauge
claimledger_registry_total_supply 3
# HELP claimledger_registry_up 1 if the ledger could be read.
# TYPE claimledger_registry_up gauge
claimledger_registry_up 1
`
		if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"claimledger_registry_total_supply", "claimledger_registry_up"); err != nil {
			t.Error(err)
		}
		if n := testutil.CollectAndCount(c); n != 4 {
			t.Errorf("metric count = %d, want 4", n)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		c := NewLedgerCollector(func() (LedgerStats, error) {
			return LedgerStats{}, errors.New("closed")
		})
		if n := testutil.CollectAndCount(c); n != 1 {
			t.Errorf("metric count = %d, want 1 (up only)", n)
		}
	})

	t.Run("registers", func(t *testing.T) {
		r := NewRegistry()
		c := NewLedgerCollector(func() (LedgerStats, error) { return LedgerStats{}, nil })
		if err := r.Registerer().Register(c); err != nil {
			t.Fatalf("Register: %v", err)
		}
	})
}
