// Package portfolio replays a user's MarketActionTx log into transactions,
// portfolio-wide stats, open positions with weighted-average cost basis, and
// a cumulative P&L series.
//
// Every function here is a pure reduction over its input. Amounts stay in
// *big.Int fixed-point units; no float64 is used for money.
package portfolio

import (
	"math/big"
	"sort"

	"github.com/atmx/portfolio-engine/internal/model"
)

// Normalize maps raw log entries into transactions, newest first.
// Missing fields default to zero values; a malformed entry never fails the
// batch. The input is not modified and the output shares no *big.Int with it.
func Normalize(entries []model.RawLogEntry) []model.Transaction {
	txs := make([]model.Transaction, 0, len(entries))
	for _, e := range entries {
		txs = append(txs, normalizeEntry(e))
	}

	sort.SliceStable(txs, func(i, j int) bool { return newerFirst(txs[i], txs[j]) })
	return txs
}

func normalizeEntry(e model.RawLogEntry) model.Transaction {
	action := model.ActionUnknown
	if e.Action != nil {
		action = model.ParseAction(*e.Action)
	}

	return model.Transaction{
		Hash:        e.TxHash,
		MarketID:    orZero(e.MarketID),
		Action:      action,
		ActionLabel: action.Label(),
		OutcomeID:   orZero(e.OutcomeID),
		Shares:      orZero(e.Shares),
		Value:       orZero(e.Value),
		Timestamp:   toUnix(e.Timestamp),
		BlockNumber: e.BlockNumber,
		LogIndex:    e.LogIndex,
	}
}

// newerFirst orders by timestamp, then block, then log index, all descending,
// then by hash so equal keys still sort deterministically.
func newerFirst(a, b model.Transaction) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber > b.BlockNumber
	}
	if a.LogIndex != b.LogIndex {
		return a.LogIndex > b.LogIndex
	}
	return a.Hash > b.Hash
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// toUnix converts a uint256 timestamp; values outside int64 are malformed
// and default to zero.
func toUnix(v *big.Int) int64 {
	if v == nil || !v.IsInt64() || v.Sign() < 0 {
		return 0
	}
	return v.Int64()
}
