// Package watch keeps the derived portfolio for one watched address and
// recomputes it whenever the address changes or a refresh is requested.
//
// Each trigger starts a new fetch cycle with a higher generation and cancels
// the previous one. A cycle's result is applied only if its generation is
// still the latest, so a slow response for an old address can never
// overwrite state for the new one.
package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/atmx/portfolio-engine/internal/metrics"
	"github.com/atmx/portfolio-engine/internal/model"
	"github.com/atmx/portfolio-engine/internal/portfolio"
)

// Fetcher loads the raw log entries for one user.
type Fetcher interface {
	Fetch(ctx context.Context, user string) ([]model.RawLogEntry, error)
}

// State is the externally observed result of the latest cycle.
type State struct {
	Generation uint64         `json:"generation"`
	CycleID    string         `json:"cycle_id,omitempty"`
	Address    string         `json:"address"`
	Loading    bool           `json:"loading"`
	Err        error          `json:"-"`
	Snapshot   model.Snapshot `json:"snapshot"`
}

// Tracker owns the state for a single session.
type Tracker struct {
	fetcher  Fetcher
	onUpdate func(State)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a tracker. onUpdate, if non-nil, is called after every
// state change; it runs without the tracker lock held and must not block
// for long.
func NewTracker(f Fetcher, onUpdate func(State)) *Tracker {
	return &Tracker{
		fetcher:  f,
		onUpdate: onUpdate,
		state:    State{Snapshot: model.EmptySnapshot()},
	}
}

// Watch starts a cycle for address and returns its generation. An empty
// address resets the outputs without fetching. Switching to a different
// address clears the previous results; re-watching the same address keeps
// them until the new cycle lands.
func (t *Tracker) Watch(address string) uint64 {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	t.state.Generation++
	gen := t.state.Generation

	if address == "" {
		t.state = State{Generation: gen, Snapshot: model.EmptySnapshot()}
		snap := t.state
		t.mu.Unlock()
		t.publish(snap)
		return gen
	}

	if address != t.state.Address {
		t.state.Snapshot = model.EmptySnapshot()
	}
	t.state.Address = address
	t.state.Loading = true
	t.state.Err = nil
	t.state.CycleID = uuid.New().String()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	cycleID := t.state.CycleID
	snap := t.state
	t.wg.Add(1)
	t.mu.Unlock()

	t.publish(snap)

	go t.run(ctx, gen, cycleID, address)
	return gen
}

// Refresh re-runs the cycle for the current address.
func (t *Tracker) Refresh() uint64 {
	t.mu.Lock()
	addr := t.state.Address
	t.mu.Unlock()
	return t.Watch(addr)
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close cancels any in-flight cycle and waits for it to return.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	// Invalidate anything still running.
	t.state.Generation++
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context, gen uint64, cycleID, address string) {
	defer t.wg.Done()

	entries, err := t.fetcher.Fetch(ctx, address)

	var snapshot model.Snapshot
	if err == nil {
		snapshot = portfolio.Compute(entries)
	}

	t.mu.Lock()
	if gen != t.state.Generation {
		t.mu.Unlock()
		metrics.StaleCyclesDiscarded.Inc()
		slog.Debug("discarding stale cycle",
			"cycle", cycleID,
			"address", address,
			"generation", gen,
		)
		return
	}

	t.state.Loading = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if err != nil {
		// Prior results stay untouched.
		t.state.Err = err
	} else {
		t.state.Snapshot = snapshot
	}
	snap := t.state
	t.mu.Unlock()

	t.publish(snap)
}

func (t *Tracker) publish(s State) {
	if t.onUpdate != nil {
		t.onUpdate(s)
	}
}
