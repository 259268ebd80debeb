package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

func startedCommitter(t *testing.T, ledger *Ledger) *LocalCommitter {
	t.Helper()
	c := NewLocalCommitter(ledger, LocalCommitterConfig{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPending_ResolveOnce(t *testing.T) {
	p := NewPending(SubmissionMint)
	if p.ID() == "" {
		t.Fatal("empty submission id")
	}
	if _, done, _ := p.Status(); done {
		t.Fatal("new handle reports done")
	}

	p.Resolve(&Confirmation{TokenID: 1, CommitIndex: 7})
	p.Fail(errors.New("late"))
	p.Resolve(&Confirmation{TokenID: 2})

	conf, err := p.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if conf.TokenID != 1 || conf.CommitIndex != 7 {
		t.Errorf("conf = %+v", conf)
	}
}

func TestPending_FailWraps(t *testing.T) {
	p := NewPending(SubmissionMint)
	p.Fail(domain.ErrUnauthorized)

	_, err := p.Await(context.Background())
	if !errors.Is(err, domain.ErrSubmissionFailed) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrSubmissionFailed wrapping ErrUnauthorized", err)
	}

	q := NewPending(SubmissionMint)
	q.Fail(domain.ErrSubmissionFailed.WithDetails("already wrapped"))
	_, err = q.Await(context.Background())
	var de *domain.DomainError
	if !errors.As(err, &de) || de.Cause != nil {
		t.Errorf("already-wrapped error should not be wrapped again: %v", err)
	}
}

func TestPending_AwaitContext(t *testing.T) {
	p := NewPending(SubmissionMint)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	// The outcome is still delivered after the caller gave up.
	p.Resolve(&Confirmation{TokenID: 3})
	conf, done, err := p.Status()
	if !done || err != nil || conf.TokenID != 3 {
		t.Errorf("Status() = (%v, %v, %v)", conf, done, err)
	}
}

func TestNewPending_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPending(SubmissionMint).ID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestLocalCommitter_MintConfirms(t *testing.T) {
	ctx := context.Background()
	ledger, _ := initializedLedger(t)
	c := startedCommitter(t, ledger)

	p, err := c.SubmitMint(ctx, mintCmd(holderA))
	if err != nil {
		t.Fatalf("SubmitMint: %v", err)
	}
	conf, err := p.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if conf.TokenID != 1 {
		t.Errorf("TokenID = %d, want 1", conf.TokenID)
	}
	// The sequence continues after the initialize marker.
	if conf.CommitIndex != 2 {
		t.Errorf("CommitIndex = %d, want 2", conf.CommitIndex)
	}
	if conf.Token == nil || conf.Token.Sequence != conf.CommitIndex {
		t.Errorf("Token = %+v", conf.Token)
	}
}

func TestLocalCommitter_CommitTimeRejection(t *testing.T) {
	ctx := context.Background()
	ledger, repo := initializedLedger(t)
	c := startedCommitter(t, ledger)

	p, err := c.SubmitMint(ctx, domain.MintCommand{Caller: outsider, Owner: holderA})
	if err != nil {
		t.Fatalf("SubmitMint: %v", err)
	}
	_, err = p.Await(ctx)
	if !errors.Is(err, domain.ErrSubmissionFailed) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}

	state, _ := repo.LoadState(ctx)
	if state.TotalSupply != 0 {
		t.Errorf("TotalSupply = %d, want 0", state.TotalSupply)
	}
}

func TestLocalCommitter_OrderPerCaller(t *testing.T) {
	ctx := context.Background()
	ledger, _ := initializedLedger(t)
	c := startedCommitter(t, ledger)

	var handles []*Pending
	for i := 0; i < 20; i++ {
		p, err := c.SubmitMint(ctx, mintCmd(holderA))
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, p)
	}

	var last domain.TokenID
	for i, p := range handles {
		conf, err := p.Await(ctx)
		if err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
		if conf.TokenID <= last {
			t.Fatalf("handle %d confirmed id %d after %d", i, conf.TokenID, last)
		}
		last = conf.TokenID
	}
}

func TestLocalCommitter_ConcurrentSubmitters(t *testing.T) {
	ctx := context.Background()
	ledger, repo := initializedLedger(t)
	c := startedCommitter(t, ledger)

	const workers, each = 8, 25
	var wg sync.WaitGroup
	ids := make(chan domain.TokenID, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				p, err := c.SubmitMint(ctx, mintCmd(holderB))
				if err != nil {
					t.Error(err)
					return
				}
				conf, err := p.Await(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				ids <- conf.TokenID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.TokenID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	for id := domain.TokenID(1); id <= workers*each; id++ {
		if !seen[id] {
			t.Errorf("missing id %d", id)
		}
	}
	state, _ := repo.LoadState(ctx)
	if state.TotalSupply != workers*each {
		t.Errorf("TotalSupply = %d", state.TotalSupply)
	}
}

func TestLocalCommitter_Initialize(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMockLedgerRepo())
	c := startedCommitter(t, ledger)

	p, err := c.SubmitInitialize(ctx, domain.InitializeCommand{Authority: authority})
	if err != nil {
		t.Fatal(err)
	}
	conf, err := p.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if conf.CommitIndex != 1 || conf.TokenID != 0 {
		t.Errorf("conf = %+v", conf)
	}

	p, _ = c.SubmitInitialize(ctx, domain.InitializeCommand{Authority: outsider})
	if _, err := p.Await(ctx); !errors.Is(err, domain.ErrAuthorityAlreadySet) {
		t.Errorf("err = %v, want ErrAuthorityAlreadySet", err)
	}
}

func TestLocalCommitter_ResumesSequence(t *testing.T) {
	ctx := context.Background()
	ledger, _ := initializedLedger(t)
	if _, err := ledger.ApplyMint(ctx, 10, mintCmd(holderA)); err != nil {
		t.Fatal(err)
	}

	c := startedCommitter(t, ledger)
	p, _ := c.SubmitMint(ctx, mintCmd(holderA))
	conf, err := p.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if conf.CommitIndex != 11 || conf.TokenID != 2 {
		t.Errorf("conf = %+v, want index 11 id 2", conf)
	}
}

func TestLocalCommitter_NotRunning(t *testing.T) {
	ctx := context.Background()
	ledger, _ := initializedLedger(t)
	c := NewLocalCommitter(ledger, LocalCommitterConfig{})

	if c.IsLeader() {
		t.Error("unstarted committer reports leader")
	}
	if _, err := c.SubmitMint(ctx, mintCmd(holderA)); !errors.Is(err, domain.ErrNotLeader) {
		t.Errorf("err = %v, want ErrNotLeader", err)
	}

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.IsLeader() {
		t.Error("started committer should be leader")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitMint(ctx, mintCmd(holderA)); !errors.Is(err, domain.ErrNotLeader) {
		t.Errorf("err after close = %v, want ErrNotLeader", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
