// Package ledger reads MarketActionTx entries from the append-only event log.
// Implementations include an Ethereum JSON-RPC node (source of truth), a
// PostgreSQL event index, a Redis read-through cache, and in-memory (for
// testing).
package ledger

import (
	"context"

	"github.com/atmx/portfolio-engine/internal/model"
)

// EventMarketActionTx is the event every source serves.
const EventMarketActionTx = "MarketActionTx"

// Query selects log entries emitted by Contract for one indexed user within
// the inclusive block range [From, To].
type Query struct {
	Contract string
	Event    string
	User     string
	From     uint64
	To       uint64
}

// Source is the read-only ledger interface. Implementations must be safe for
// concurrent use.
type Source interface {
	// HeadPosition returns the current chain height.
	HeadPosition(ctx context.Context) (uint64, error)

	// Logs returns entries matching the query.
	Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error)
}
