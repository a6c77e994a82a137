package ledger

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/atmx/portfolio-engine/internal/model"
)

// LocalCachedSource is the in-process counterpart of CachedSource, used when
// no Redis is configured. Same rules: raw entries and the head only.
type LocalCachedSource struct {
	primary Source
	c       *cache.Cache
	ttl     time.Duration
	headTTL time.Duration
}

// NewLocalCachedSource wraps primary with an in-memory TTL cache.
func NewLocalCachedSource(primary Source, ttl, headTTL time.Duration) *LocalCachedSource {
	return &LocalCachedSource{
		primary: primary,
		c:       cache.New(ttl, 2*ttl),
		ttl:     ttl,
		headTTL: headTTL,
	}
}

func (s *LocalCachedSource) HeadPosition(ctx context.Context) (uint64, error) {
	if v, found := s.c.Get(headKey()); found {
		return v.(uint64), nil
	}

	head, err := s.primary.HeadPosition(ctx)
	if err != nil {
		return 0, err
	}
	s.c.Set(headKey(), head, s.headTTL)
	return head, nil
}

func (s *LocalCachedSource) Logs(ctx context.Context, q Query) ([]model.RawLogEntry, error) {
	key := logsKey(q)
	if v, found := s.c.Get(key); found {
		cached := v.([]model.RawLogEntry)
		return append([]model.RawLogEntry(nil), cached...), nil
	}

	entries, err := s.primary.Logs(ctx, q)
	if err != nil {
		return nil, err
	}
	s.c.Set(key, append([]model.RawLogEntry(nil), entries...), s.ttl)
	return entries, nil
}
