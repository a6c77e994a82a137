package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/atmx/portfolio-engine/internal/ledger"
	"github.com/atmx/portfolio-engine/internal/model"
)

const (
	contract = "0x1111111111111111111111111111111111111111"
	alice    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob      = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func entry(block uint64, user string, action uint8, value int64) model.RawLogEntry {
	return model.RawLogEntry{
		TxHash:      "0x" + big.NewInt(int64(block)).Text(16),
		BlockNumber: block,
		User:        user,
		Action:      &action,
		MarketID:    big.NewInt(7),
		OutcomeID:   big.NewInt(1),
		Shares:      big.NewInt(10),
		Value:       big.NewInt(value),
		Timestamp:   big.NewInt(int64(block) * 2),
	}
}

// spySource records the last query it served.
type spySource struct {
	*ledger.MemorySource
	last ledger.Query
}

func (s *spySource) Logs(ctx context.Context, q ledger.Query) ([]model.RawLogEntry, error) {
	s.last = q
	return s.MemorySource.Logs(ctx, q)
}

func TestFetcher_TrailingWindow(t *testing.T) {
	mem := ledger.NewMemorySource(0)
	mem.Append(contract, entry(100, alice, 0, 500))  // before window
	mem.Append(contract, entry(9500, alice, 0, 700)) // inside window
	mem.Append(contract, entry(9600, bob, 0, 900))   // other user
	mem.SetHead(10000)

	spy := &spySource{MemorySource: mem}
	f := ledger.NewFetcher(spy, contract, 1000)

	entries, err := f.Fetch(context.Background(), alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].BlockNumber != 9500 {
		t.Fatalf("expected only the in-window entry, got %+v", entries)
	}
	if spy.last.From != 9000 || spy.last.To != 10000 {
		t.Errorf("expected range [9000, 10000], got [%d, %d]", spy.last.From, spy.last.To)
	}
	if spy.last.Event != ledger.EventMarketActionTx {
		t.Errorf("expected MarketActionTx event, got %q", spy.last.Event)
	}
}

func TestFetcher_ClampsWindowToGenesis(t *testing.T) {
	mem := ledger.NewMemorySource(0)
	mem.Append(contract, entry(0, alice, 0, 100))
	mem.Append(contract, entry(50, alice, 1, 50))

	spy := &spySource{MemorySource: mem}
	f := ledger.NewFetcher(spy, contract, 1_296_000)

	entries, err := f.Fetch(context.Background(), alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spy.last.From != 0 || spy.last.To != 50 {
		t.Errorf("expected range [0, 50], got [%d, %d]", spy.last.From, spy.last.To)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestFetcher_NoContractIsNoop(t *testing.T) {
	mem := ledger.NewMemorySource(10)
	mem.FailWith(errors.New("should not be called"))

	f := ledger.NewFetcher(mem, "", 1000)
	if f.Configured() {
		t.Error("fetcher without contract should not be configured")
	}

	entries, err := f.Fetch(context.Background(), alice)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestFetcher_EmptyUserIsNoop(t *testing.T) {
	mem := ledger.NewMemorySource(10)
	mem.FailWith(errors.New("should not be called"))

	entries, err := ledger.NewFetcher(mem, contract, 1000).Fetch(context.Background(), "")
	if err != nil || len(entries) != 0 {
		t.Errorf("expected empty result, got %v, %v", entries, err)
	}
}

func TestFetcher_WrapsTransportErrors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	mem := ledger.NewMemorySource(10)
	mem.FailWith(boom)

	entries, err := ledger.NewFetcher(mem, contract, 1000).Fetch(context.Background(), alice)
	if !errors.Is(err, ledger.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected underlying cause to be wrapped, got %v", err)
	}
	if entries != nil {
		t.Errorf("failed fetch must not return partial entries, got %d", len(entries))
	}
}

func TestFetcher_ContextCancelled(t *testing.T) {
	mem := ledger.NewMemorySource(10)
	mem.Append(contract, entry(5, alice, 0, 100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.NewFetcher(mem, contract, 1000).Fetch(ctx, alice)
	if !errors.Is(err, ledger.ErrFetchFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}
