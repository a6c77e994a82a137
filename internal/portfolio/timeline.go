package portfolio

import (
	"math/big"
	"sort"

	"github.com/atmx/portfolio-engine/internal/model"
)

// Timeline returns the cumulative invested/withdrawn series in chronological
// order, one point per transaction. The last point's Net equals the
// aggregate NetPosition.
func Timeline(txs []model.Transaction) []model.PnLPoint {
	ordered := make([]model.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return newerFirst(ordered[j], ordered[i]) })

	invested := new(big.Int)
	withdrawn := new(big.Int)
	points := make([]model.PnLPoint, 0, len(ordered))

	for _, tx := range ordered {
		switch tx.Action.Flow() {
		case model.FlowInflow:
			invested.Add(invested, tx.Value)
		case model.FlowOutflow:
			withdrawn.Add(withdrawn, tx.Value)
		case model.FlowNeutral:
		}

		points = append(points, model.PnLPoint{
			Timestamp:           tx.Timestamp,
			CumulativeInvested:  new(big.Int).Set(invested),
			CumulativeWithdrawn: new(big.Int).Set(withdrawn),
			Net:                 new(big.Int).Sub(withdrawn, invested),
		})
	}
	return points
}
