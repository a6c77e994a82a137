package portfolio

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/atmx/portfolio-engine/internal/model"
)

// Valuation marks one open position to a current outcome price, in display
// units.
type Valuation struct {
	MarketID      string          `json:"market_id"`
	OutcomeID     string          `json:"outcome_id"`
	Shares        decimal.Decimal `json:"shares"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	NetInvested   decimal.Decimal `json:"net_invested"` // invested - receivedFromSells
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	PnLPercent    decimal.Decimal `json:"pnl_percent"`
}

// FormatUnits scales a fixed-point amount by the token's decimals.
func FormatUnits(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// Value marks p at price (collateral per whole share). avgEntryPrice is
// already a value-per-share ratio and is passed through unscaled.
func Value(p model.OpenPosition, price decimal.Decimal, decimals int32) Valuation {
	shares := FormatUnits(p.Shares, decimals)
	invested := FormatUnits(p.Invested, decimals)
	received := FormatUnits(p.ReceivedFromSells, decimals)

	current := shares.Mul(price)
	netInvested := invested.Sub(received)
	pnl := current.Sub(netInvested)

	pct := decimal.Zero
	if netInvested.IsPositive() {
		pct = pnl.Div(netInvested).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return Valuation{
		MarketID:      p.MarketID,
		OutcomeID:     p.OutcomeID,
		Shares:        shares,
		AvgEntryPrice: p.AvgEntryPrice,
		CurrentPrice:  price,
		CurrentValue:  current,
		NetInvested:   netInvested,
		UnrealizedPnL: pnl,
		PnLPercent:    pct,
	}
}

// PriceKey is the "<market>-<outcome>" key used to look up prices.
func PriceKey(marketID, outcomeID string) string {
	return marketID + "-" + outcomeID
}

// ValueAll marks every position that has a price; positions without a price
// are skipped.
func ValueAll(positions []model.OpenPosition, prices map[string]decimal.Decimal, decimals int32) []Valuation {
	out := make([]Valuation, 0, len(positions))
	for _, p := range positions {
		price, ok := prices[PriceKey(p.MarketID, p.OutcomeID)]
		if !ok {
			continue
		}
		out = append(out, Value(p, price, decimals))
	}
	return out
}
