package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	testContract = "0x1111111111111111111111111111111111111111"
	testUser     = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

// fakeBackend records the last filter and returns canned logs.
type fakeBackend struct {
	head    uint64
	logs    []types.Log
	err     error
	lastQry ethereum.FilterQuery
}

func (f *fakeBackend) BlockNumber(_ context.Context) (uint64, error) {
	return f.head, f.err
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.lastQry = q
	return f.logs, f.err
}

func newTestEthSource(t *testing.T, fb *fakeBackend) *EthSource {
	t.Helper()
	src, err := NewEthSource(fb)
	if err != nil {
		t.Fatalf("NewEthSource: %v", err)
	}
	return src
}

// packLog builds a MarketActionTx log the way the contract would emit it.
func packLog(t *testing.T, src *EthSource, action, market, outcome, shares, value, ts int64) types.Log {
	t.Helper()
	ev := src.abi.Events[EventMarketActionTx]
	data, err := ev.Inputs.NonIndexed().Pack(
		big.NewInt(outcome), big.NewInt(shares), big.NewInt(value), big.NewInt(ts))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: common.HexToAddress(testContract),
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.HexToAddress(testUser).Bytes()),
			common.BigToHash(big.NewInt(action)),
			common.BigToHash(big.NewInt(market)),
		},
		Data:        data,
		BlockNumber: 1234,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func TestEthSource_LogsDecodesAllArguments(t *testing.T) {
	fb := &fakeBackend{}
	src := newTestEthSource(t, fb)
	fb.logs = []types.Log{packLog(t, src, 1, 7, 1, 5, 400, 1700000000)}

	entries, err := src.Logs(context.Background(), Query{
		Contract: testContract,
		User:     testUser,
		From:     100,
		To:       2000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.User != testUser {
		t.Errorf("expected user %s, got %s", testUser, e.User)
	}
	if e.Action == nil || *e.Action != 1 {
		t.Errorf("expected action 1, got %v", e.Action)
	}
	checks := []struct {
		name string
		got  *big.Int
		want int64
	}{
		{"marketId", e.MarketID, 7},
		{"outcomeId", e.OutcomeID, 1},
		{"shares", e.Shares, 5},
		{"value", e.Value, 400},
		{"timestamp", e.Timestamp, 1700000000},
	}
	for _, c := range checks {
		if c.got == nil || c.got.Int64() != c.want {
			t.Errorf("%s: expected %d, got %v", c.name, c.want, c.got)
		}
	}
	if e.BlockNumber != 1234 || e.LogIndex != 3 {
		t.Errorf("unexpected provenance: block=%d index=%d", e.BlockNumber, e.LogIndex)
	}
	if e.TxHash != common.HexToHash("0xabc").Hex() {
		t.Errorf("unexpected tx hash %s", e.TxHash)
	}
}

func TestEthSource_FilterQuery(t *testing.T) {
	fb := &fakeBackend{}
	src := newTestEthSource(t, fb)

	_, err := src.Logs(context.Background(), Query{
		Contract: testContract,
		Event:    EventMarketActionTx,
		User:     testUser,
		From:     10,
		To:       20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := fb.lastQry
	if q.FromBlock.Uint64() != 10 || q.ToBlock.Uint64() != 20 {
		t.Errorf("unexpected range [%s, %s]", q.FromBlock, q.ToBlock)
	}
	if len(q.Addresses) != 1 || q.Addresses[0] != common.HexToAddress(testContract) {
		t.Errorf("unexpected addresses %v", q.Addresses)
	}
	if len(q.Topics) != 2 {
		t.Fatalf("expected signature and user topics, got %d", len(q.Topics))
	}
	if q.Topics[0][0] != src.abi.Events[EventMarketActionTx].ID {
		t.Error("first topic should be the event signature")
	}
	if q.Topics[1][0] != common.BytesToHash(common.HexToAddress(testUser).Bytes()) {
		t.Error("second topic should be the padded user address")
	}
}

func TestEthSource_MalformedLogLeavesFieldsNil(t *testing.T) {
	fb := &fakeBackend{}
	src := newTestEthSource(t, fb)

	good := packLog(t, src, 0, 9, 0, 10, 500, 1700000000)
	// Drop the marketId topic and truncate the data payload.
	good.Topics = good.Topics[:3]
	good.Data = good.Data[:10]
	fb.logs = []types.Log{good}

	entries, err := src.Logs(context.Background(), Query{Contract: testContract, User: testUser})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := entries[0]
	if e.Action == nil || *e.Action != 0 {
		t.Errorf("action topic should still decode, got %v", e.Action)
	}
	if e.MarketID != nil || e.Shares != nil || e.Value != nil {
		t.Errorf("missing fields should be nil: market=%v shares=%v value=%v", e.MarketID, e.Shares, e.Value)
	}
}

func TestEthSource_UnknownEvent(t *testing.T) {
	src := newTestEthSource(t, &fakeBackend{})
	if _, err := src.Logs(context.Background(), Query{Event: "Nope"}); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestEthSource_PropagatesTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	src := newTestEthSource(t, &fakeBackend{err: boom})

	if _, err := src.HeadPosition(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected transport error, got %v", err)
	}
	if _, err := src.Logs(context.Background(), Query{}); !errors.Is(err, boom) {
		t.Errorf("expected transport error, got %v", err)
	}
}
