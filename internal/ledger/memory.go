package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/atmx/portfolio-engine/internal/model"
)

// memoryEntry is a stored log together with the contract that emitted it.
type memoryEntry struct {
	contract string
	entry    model.RawLogEntry
}

// MemorySource implements Source with an in-memory log. Used for testing
// and development.
type MemorySource struct {
	mu      sync.RWMutex
	head    uint64
	entries []memoryEntry
	err     error
}

// NewMemorySource creates an empty in-memory ledger at the given head.
func NewMemorySource(head uint64) *MemorySource {
	return &MemorySource{head: head}
}

// Append adds a log entry emitted by contract.
func (s *MemorySource) Append(contract string, e model.RawLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, memoryEntry{contract: contract, entry: e})
	if e.BlockNumber > s.head {
		s.head = e.BlockNumber
	}
}

// SetHead moves the chain head.
func (s *MemorySource) SetHead(head uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *MemorySource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySource) HeadPosition(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return 0, s.err
	}
	return s.head, nil
}

func (s *MemorySource) Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []model.RawLogEntry
	for _, me := range s.entries {
		e := me.entry
		if !strings.EqualFold(me.contract, q.Contract) || !strings.EqualFold(e.User, q.User) {
			continue
		}
		if e.BlockNumber < q.From || e.BlockNumber > q.To {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}
