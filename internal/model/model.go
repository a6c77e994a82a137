// Package model defines the core domain types shared across the portfolio engine.
// Share and collateral quantities are fixed-point integers (*big.Int) in the
// token's smallest unit; scaling to display units happens at the presentation
// boundary only.
package model

import (
	"encoding/json"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// RawLogEntry is one MarketActionTx log as returned by a ledger source.
// Decoded arguments are nil when the source could not provide them; the
// normalizer defaults them to zero instead of rejecting the entry.
type RawLogEntry struct {
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	LogIndex    uint     `json:"log_index"`
	User        string   `json:"user,omitempty"`
	Action      *uint8   `json:"action,omitempty"`
	MarketID    *big.Int `json:"market_id,omitempty"`
	OutcomeID   *big.Int `json:"outcome_id,omitempty"`
	Shares      *big.Int `json:"shares,omitempty"`
	Value       *big.Int `json:"value,omitempty"`
	Timestamp   *big.Int `json:"timestamp,omitempty"`
}

// Transaction is one immutable economic event derived from a log entry.
type Transaction struct {
	Hash        string   `json:"hash"`
	MarketID    *big.Int `json:"market_id"`
	Action      Action   `json:"action"`
	ActionLabel string   `json:"action_label"`
	OutcomeID   *big.Int `json:"outcome_id"`
	Shares      *big.Int `json:"shares"`
	Value       *big.Int `json:"value"`
	Timestamp   int64    `json:"timestamp"`
	BlockNumber uint64   `json:"block_number"`
	LogIndex    uint     `json:"log_index"`
}

// MarketSet is the set of distinct market IDs (decimal strings).
// It serialises as a sorted JSON array.
type MarketSet map[string]struct{}

// Add inserts a market ID.
func (s MarketSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s MarketSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending numeric order.
func (s MarketSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessNumeric(out[i], out[j]) })
	return out
}

func (s MarketSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *MarketSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(MarketSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return nil
}

// PortfolioStats aggregates inflow/outflow over a user's whole history.
type PortfolioStats struct {
	TotalInvested    *big.Int  `json:"total_invested"`
	TotalWithdrawn   *big.Int  `json:"total_withdrawn"`
	NetPosition      *big.Int  `json:"net_position"` // withdrawn - invested
	MarketsTraded    MarketSet `json:"markets_traded"`
	TransactionCount int       `json:"transaction_count"`
}

// EmptyStats returns all-zero stats with an empty market set.
func EmptyStats() PortfolioStats {
	return PortfolioStats{
		TotalInvested:  new(big.Int),
		TotalWithdrawn: new(big.Int),
		NetPosition:    new(big.Int),
		MarketsTraded:  MarketSet{},
	}
}

// OpenPosition is the running Buy/Sell accumulator for one (market, outcome).
type OpenPosition struct {
	MarketID          string          `json:"market_id"`
	OutcomeID         string          `json:"outcome_id"`
	Shares            *big.Int        `json:"shares"` // totalBought - totalSold
	TotalBought       *big.Int        `json:"total_bought"`
	TotalSold         *big.Int        `json:"total_sold"`
	Invested          *big.Int        `json:"invested"`
	ReceivedFromSells *big.Int        `json:"received_from_sells"`
	AvgEntryPrice     decimal.Decimal `json:"avg_entry_price"` // invested / totalBought
}

// PnLPoint is one step of the cumulative profit/loss series.
type PnLPoint struct {
	Timestamp           int64    `json:"timestamp"`
	CumulativeInvested  *big.Int `json:"cumulative_invested"`
	CumulativeWithdrawn *big.Int `json:"cumulative_withdrawn"`
	Net                 *big.Int `json:"net"`
}

// Snapshot is everything derived from one replay of the log.
type Snapshot struct {
	Transactions []Transaction  `json:"transactions"`
	Positions    []OpenPosition `json:"positions"`
	Stats        PortfolioStats `json:"stats"`
	Timeline     []PnLPoint     `json:"timeline"`
}

// EmptySnapshot is the "nothing to compute" result.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Transactions: []Transaction{},
		Positions:    []OpenPosition{},
		Stats:        EmptyStats(),
		Timeline:     []PnLPoint{},
	}
}

// lessNumeric orders decimal strings by value; non-numeric strings sort
// lexically after numeric ones.
func lessNumeric(a, b string) bool {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	switch {
	case okA && okB:
		return x.Cmp(y) < 0
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
