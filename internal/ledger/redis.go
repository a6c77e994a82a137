package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/portfolio-engine/internal/model"
)

// CachedSource wraps a primary Source with a Redis read-through cache.
// Only raw log entries and the head position are cached; nothing derived
// from them is ever stored.
type CachedSource struct {
	primary Source
	rdb     *redis.Client
	ttl     time.Duration
	headTTL time.Duration
}

// NewCachedSource creates a cached wrapper around a primary source.
// headTTL should be well under the block interval's order of magnitude so
// the trailing window keeps moving.
func NewCachedSource(primary Source, rdb *redis.Client, ttl, headTTL time.Duration) *CachedSource {
	return &CachedSource{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		headTTL: headTTL,
	}
}

func (s *CachedSource) HeadPosition(ctx context.Context) (uint64, error) {
	if v, err := s.rdb.Get(ctx, headKey()).Result(); err == nil {
		if head, err := strconv.ParseUint(v, 10, 64); err == nil {
			return head, nil
		}
	}

	head, err := s.primary.HeadPosition(ctx)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, headKey(), strconv.FormatUint(head, 10), s.headTTL)
	return head, nil
}

func (s *CachedSource) Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error) {
	key := logsKey(q)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var entries []model.RawLogEntry
		if json.Unmarshal(data, &entries) == nil {
			return entries, nil
		}
	}

	entries, err := s.primary.Logs(ctx, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return entries, nil
}

// --- Cache keys ---

func headKey() string { return "ledger:head" }

func logsKey(q Query) string {
	event := q.Event
	if event == "" {
		event = EventMarketActionTx
	}
	return fmt.Sprintf("ledger:logs:%s:%s:%s:%d:%d",
		strings.ToLower(q.Contract), event, strings.ToLower(q.User), q.From, q.To)
}
