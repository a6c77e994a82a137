package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atmx/portfolio-engine/internal/chain"
	"github.com/atmx/portfolio-engine/internal/metrics"
	"github.com/atmx/portfolio-engine/internal/model"
)

// ErrFetchFailed is the only error the fetcher surfaces. The underlying
// transport error is logged at the boundary and wrapped for errors.Is.
var ErrFetchFailed = errors.New("ledger: fetch failed")

// Fetcher queries a trailing block window ending at the current head for one
// user's MarketActionTx entries.
type Fetcher struct {
	src      Source
	contract string
	window   uint64
}

// NewFetcher creates a fetcher. An empty contract address makes every Fetch
// a no-op returning no entries.
func NewFetcher(src Source, contract string, window uint64) *Fetcher {
	return &Fetcher{src: src, contract: contract, window: window}
}

// Configured reports whether a contract address is set.
func (f *Fetcher) Configured() bool {
	return f.contract != "" && f.src != nil
}

// Fetch returns the raw entries for user over [head - window, head].
func (f *Fetcher) Fetch(ctx context.Context, user string) ([]model.RawLogEntry, error) {
	if !f.Configured() || user == "" {
		return nil, nil
	}

	start := time.Now()
	entries, from, to, err := f.fetch(ctx, user)
	metrics.FetchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchFailures.Inc()
		slog.Error("fetch transactions failed",
			"user", user,
			"contract", f.contract,
			"err", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	metrics.LogEntriesFetched.Add(float64(len(entries)))
	slog.Info("fetched user transactions",
		"user", user,
		"from_block", from,
		"to_block", to,
		"count", len(entries),
	)
	return entries, nil
}

func (f *Fetcher) fetch(ctx context.Context, user string) ([]model.RawLogEntry, uint64, uint64, error) {
	head, err := f.src.HeadPosition(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("head position: %w", err)
	}
	from := chain.WindowStart(head, f.window)

	entries, err := f.src.Logs(ctx, Query{
		Contract: f.contract,
		Event:    EventMarketActionTx,
		User:     user,
		From:     from,
		To:       head,
	})
	if err != nil {
		return nil, from, head, fmt.Errorf("logs [%d, %d]: %w", from, head, err)
	}
	return entries, from, head, nil
}
