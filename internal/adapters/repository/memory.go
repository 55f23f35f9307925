package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

const memoryBackend = "memory"

// MemoryStore is an in-process Store. Every operation is atomic with respect
// to the others; sequences of operations are not.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]int64
	hashes   map[string]map[string]string
	zsets    map[string]*sortedSet
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.counters = make(map[string]int64)
	s.hashes = make(map[string]map[string]string)
	s.zsets = make(map[string]*sortedSet)
}

// kindOf reports which table holds key; the caller holds the lock.
func (s *MemoryStore) kindOf(key string) string {
	if _, ok := s.counters[key]; ok {
		return "counter"
	}
	if _, ok := s.hashes[key]; ok {
		return "hash"
	}
	if _, ok := s.zsets[key]; ok {
		return "zset"
	}
	return ""
}

func (s *MemoryStore) checkKind(key, want string) error {
	if s.closed {
		return ErrClosed
	}
	if k := s.kindOf(key); k != "" && k != want {
		return fmt.Errorf("%s %q: %w", want, key, ErrWrongType)
	}
	return nil
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string) (n int64, err error) {
	defer func(start time.Time) { observe(memoryBackend, "incr", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkKind(key, "counter"); err != nil {
		return 0, err
	}
	if s.counters[key] == math.MaxInt64 {
		return 0, fmt.Errorf("incr %q: %w", key, ErrNotInteger)
	}
	s.counters[key]++
	return s.counters[key], nil
}

// HSet implements Store.
func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "hset", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkKind(key, "hash"); err != nil {
		return err
	}
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

// HGet implements Store.
func (s *MemoryStore) HGet(_ context.Context, key, field string) (v string, err error) {
	defer func(start time.Time) { observe(memoryBackend, "hget", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "hash"); err != nil {
		return "", err
	}
	v, ok := s.hashes[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// HGetAll implements Store.
func (s *MemoryStore) HGetAll(_ context.Context, key string) (out map[string]string, err error) {
	defer func(start time.Time) { observe(memoryBackend, "hgetall", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "hash"); err != nil {
		return nil, err
	}
	h := s.hashes[key]
	out = make(map[string]string, len(h))
	for f, v := range h {
		out[f] = v
	}
	return out, nil
}

// ZAdd implements Store.
func (s *MemoryStore) ZAdd(_ context.Context, key, member string, score float64) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "zadd", start, err) }(time.Now())

	if math.IsNaN(score) {
		return fmt.Errorf("zadd %q: %w", key, ErrBadScore)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkKind(key, "zset"); err != nil {
		return err
	}
	z, ok := s.zsets[key]
	if !ok {
		z = newSortedSet()
		s.zsets[key] = z
	}
	z.add(member, score)
	return nil
}

// ZRevRange implements Store.
func (s *MemoryStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.ZRevRangeWithScores(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}

// ZRevRangeWithScores implements Store.
func (s *MemoryStore) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) (out []Member, err error) {
	defer func(t time.Time) { observe(memoryBackend, "zrevrange", t, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "zset"); err != nil {
		return nil, err
	}
	z, ok := s.zsets[key]
	if !ok {
		return []Member{}, nil
	}
	return z.window(start, stop), nil
}

// ZRevRank implements Store.
func (s *MemoryStore) ZRevRank(_ context.Context, key, member string) (rank int64, err error) {
	defer func(start time.Time) { observe(memoryBackend, "zrevrank", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "zset"); err != nil {
		return 0, err
	}
	z, ok := s.zsets[key]
	if !ok {
		return 0, ErrNotFound
	}
	rank, ok = z.rank(member)
	if !ok {
		return 0, ErrNotFound
	}
	return rank, nil
}

// ZScore implements Store.
func (s *MemoryStore) ZScore(_ context.Context, key, member string) (score float64, err error) {
	defer func(start time.Time) { observe(memoryBackend, "zscore", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "zset"); err != nil {
		return 0, err
	}
	z, ok := s.zsets[key]
	if !ok {
		return 0, ErrNotFound
	}
	score, ok = z.scores[member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}

// ZCard implements Store.
func (s *MemoryStore) ZCard(_ context.Context, key string) (n int64, err error) {
	defer func(start time.Time) { observe(memoryBackend, "zcard", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkKind(key, "zset"); err != nil {
		return 0, err
	}
	if z, ok := s.zsets[key]; ok {
		return z.card(), nil
	}
	return 0, nil
}

// Keys implements Store using Redis-style glob patterns.
func (s *MemoryStore) Keys(_ context.Context, pattern string) (keys []string, err error) {
	defer func(start time.Time) { observe(memoryBackend, "keys", start, err) }(time.Now())

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBadPattern, pattern, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys = []string{}
	for k := range s.counters {
		if g.Match(k) {
			keys = append(keys, k)
		}
	}
	for k := range s.hashes {
		if g.Match(k) {
			keys = append(keys, k)
		}
	}
	for k := range s.zsets {
		if g.Match(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Del implements Store.
func (s *MemoryStore) Del(_ context.Context, keys ...string) (n int64, err error) {
	defer func(start time.Time) { observe(memoryBackend, "del", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	for _, k := range keys {
		switch s.kindOf(k) {
		case "counter":
			delete(s.counters, k)
		case "hash":
			delete(s.hashes, k)
		case "zset":
			delete(s.zsets, k)
		default:
			continue
		}
		n++
	}
	return n, nil
}

// FlushAll implements Store.
func (s *MemoryStore) FlushAll(_ context.Context) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "flushall", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.reset()
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of keys held, for stats.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters) + len(s.hashes) + len(s.zsets)
}
