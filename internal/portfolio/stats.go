package portfolio

import (
	"math/big"

	"github.com/atmx/portfolio-engine/internal/model"
)

// Aggregate reduces transactions into portfolio-wide totals. Buy and
// AddLiquidity count as invested; Sell, RemoveLiquidity and every claim count
// as withdrawn. Every transaction contributes its market to MarketsTraded.
func Aggregate(txs []model.Transaction) model.PortfolioStats {
	stats := model.EmptyStats()

	for _, tx := range txs {
		stats.MarketsTraded.Add(tx.MarketID.String())

		switch tx.Action.Flow() {
		case model.FlowInflow:
			stats.TotalInvested.Add(stats.TotalInvested, tx.Value)
		case model.FlowOutflow:
			stats.TotalWithdrawn.Add(stats.TotalWithdrawn, tx.Value)
		case model.FlowNeutral:
		}
	}

	stats.NetPosition = new(big.Int).Sub(stats.TotalWithdrawn, stats.TotalInvested)
	stats.TransactionCount = len(txs)
	return stats
}
