package portfolio

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/atmx/portfolio-engine/internal/model"
)

// PriceScale is the number of decimal places kept for avgEntryPrice.
var PriceScale int32 = 18

// positionKey identifies one (market, outcome) accumulator.
type positionKey struct {
	market  string
	outcome string
}

// Reconstruct folds Buy and Sell transactions into per-(market, outcome)
// accumulators and returns those with strictly positive net shares, ordered
// by market then outcome.
//
// The cost basis is a weighted average over the entire buy history:
// avgEntryPrice = invested / totalBought. Sells do not consume lots, so a
// later buy at a different price moves the average for every held share.
func Reconstruct(txs []model.Transaction) []model.OpenPosition {
	acc := make(map[positionKey]*model.OpenPosition)

	for _, tx := range txs {
		if tx.Action != model.ActionBuy && tx.Action != model.ActionSell {
			continue
		}

		key := positionKey{market: tx.MarketID.String(), outcome: tx.OutcomeID.String()}
		p, ok := acc[key]
		if !ok {
			p = newPosition(key)
			acc[key] = p
		}

		if tx.Action == model.ActionBuy {
			p.Shares.Add(p.Shares, tx.Shares)
			p.TotalBought.Add(p.TotalBought, tx.Shares)
			p.Invested.Add(p.Invested, tx.Value)
		} else {
			p.Shares.Sub(p.Shares, tx.Shares)
			p.TotalSold.Add(p.TotalSold, tx.Shares)
			p.ReceivedFromSells.Add(p.ReceivedFromSells, tx.Value)
		}
	}

	open := make([]model.OpenPosition, 0, len(acc))
	for _, p := range acc {
		if p.Shares.Sign() <= 0 {
			continue
		}
		p.AvgEntryPrice = AvgEntryPrice(p.Invested, p.TotalBought)
		open = append(open, *p)
	}

	sort.Slice(open, func(i, j int) bool {
		if c := cmpNumeric(open[i].MarketID, open[j].MarketID); c != 0 {
			return c < 0
		}
		return cmpNumeric(open[i].OutcomeID, open[j].OutcomeID) < 0
	})
	return open
}

// AvgEntryPrice returns invested / totalBought in value-per-share units, or
// zero when nothing was bought.
func AvgEntryPrice(invested, totalBought *big.Int) decimal.Decimal {
	if totalBought.Sign() <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(invested, 0).
		DivRound(decimal.NewFromBigInt(totalBought, 0), PriceScale)
}

func newPosition(key positionKey) *model.OpenPosition {
	return &model.OpenPosition{
		MarketID:          key.market,
		OutcomeID:         key.outcome,
		Shares:            new(big.Int),
		TotalBought:       new(big.Int),
		TotalSold:         new(big.Int),
		Invested:          new(big.Int),
		ReceivedFromSells: new(big.Int),
		AvgEntryPrice:     decimal.Zero,
	}
}

// cmpNumeric compares decimal strings produced by big.Int.String.
func cmpNumeric(a, b string) int {
	x, _ := new(big.Int).SetString(a, 10)
	y, _ := new(big.Int).SetString(b, 10)
	if x == nil || y == nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return x.Cmp(y)
}
