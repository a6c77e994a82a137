// Package profile provides the HTTP handlers that expose a user's replayed
// trading history: transactions, open positions, portfolio stats, the P&L
// timeline, and position valuations.
//
// Nothing is stored; every request replays the ledger window from scratch.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/portfolio-engine/internal/chain"
	"github.com/atmx/portfolio-engine/internal/model"
	"github.com/atmx/portfolio-engine/internal/portfolio"
	"github.com/atmx/portfolio-engine/internal/watch"
)

// errFetchMessage is the only transport failure detail exposed to clients.
const errFetchMessage = "failed to fetch transactions"

// Service serves replayed portfolios over REST.
type Service struct {
	fetcher  watch.Fetcher
	decimals int32
	timeout  time.Duration
}

// NewService creates a profile service. decimals is the token scale used for
// valuations; timeout bounds each replay (0 means no extra deadline).
func NewService(f watch.Fetcher, decimals int32, timeout time.Duration) *Service {
	return &Service{
		fetcher:  f,
		decimals: decimals,
		timeout:  timeout,
	}
}

// --- Request/Response types ---

// ValuationRequest is the JSON body for POST /portfolio/{address}/valuation.
type ValuationRequest struct {
	Prices map[string]decimal.Decimal `json:"prices"` // "<market>-<outcome>" → price per share
}

// ValuationResponse lists the valued open positions.
type ValuationResponse struct {
	Address    string                `json:"address"`
	Decimals   int32                 `json:"decimals"`
	Valuations []portfolio.Valuation `json:"valuations"`
}

// --- HTTP Handlers ---

// GetPortfolio handles GET /api/v1/portfolio/{address}
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.replay(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap)
}

// GetTransactions handles GET /api/v1/portfolio/{address}/transactions
func (s *Service) GetTransactions(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.replay(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.Transactions)
}

// GetPositions handles GET /api/v1/portfolio/{address}/positions
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.replay(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.Positions)
}

// GetStats handles GET /api/v1/portfolio/{address}/stats
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.replay(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.Stats)
}

// GetTimeline handles GET /api/v1/portfolio/{address}/timeline
func (s *Service) GetTimeline(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.replay(w, r)
	if !ok {
		return
	}
	writeJSON(w, snap.Timeline)
}

// ValuePositions handles POST /api/v1/portfolio/{address}/valuation
// Marks open positions to caller-supplied outcome prices.
func (s *Service) ValuePositions(w http.ResponseWriter, r *http.Request) {
	var req ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for key, price := range req.Prices {
		if price.IsNegative() {
			writeError(w, "price for "+key+" must not be negative", http.StatusBadRequest)
			return
		}
	}

	snap, ok := s.replay(w, r)
	if !ok {
		return
	}

	writeJSON(w, ValuationResponse{
		Address:    chi.URLParam(r, "address"),
		Decimals:   s.decimals,
		Valuations: portfolio.ValueAll(snap.Positions, req.Prices, s.decimals),
	})
}

// replay validates the address, fetches the window and computes the
// snapshot. On failure it writes the error response and returns false.
func (s *Service) replay(w http.ResponseWriter, r *http.Request) (model.Snapshot, bool) {
	addr, err := chain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return model.Snapshot{}, false
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	entries, err := s.fetcher.Fetch(ctx, addr)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, errFetchMessage, status)
		return model.Snapshot{}, false
	}

	snap := portfolio.Compute(entries)
	slog.Debug("portfolio replayed",
		"user", addr,
		"transactions", snap.Stats.TransactionCount,
		"open_positions", len(snap.Positions),
	)
	return snap, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
