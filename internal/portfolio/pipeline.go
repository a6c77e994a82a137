package portfolio

import "github.com/atmx/portfolio-engine/internal/model"

// Compute runs the full replay over a frozen set of log entries. Stats,
// positions and timeline consume the same normalized list independently.
func Compute(entries []model.RawLogEntry) model.Snapshot {
	txs := Normalize(entries)
	return model.Snapshot{
		Transactions: txs,
		Positions:    Reconstruct(txs),
		Stats:        Aggregate(txs),
		Timeline:     Timeline(txs),
	}
}
