package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"knowledge-quiz-service/internal/domain"
)

const poolKey = "pool"

// PoolLoader fetches the question pool from a backing source (CSV export, database).
type PoolLoader interface {
	LoadPool(ctx context.Context) ([]domain.Question, error)
}

// PoolRepository caches the question pool with TTL to avoid refetching the source
// for every session.
type PoolRepository struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	entry *cachedPool
}

type cachedPool struct {
	pool      []domain.Question
	expiresAt time.Time
}

func NewPoolRepository(loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetPool returns the cached pool, loading it when missing or expired. A zero
// TTL caches forever.
func (r *PoolRepository) GetPool(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := r.cached(r.clock()); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolKey, func() (interface{}, error) {
		now := r.clock()
		if pool, ok := r.cached(now); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx)
		if err != nil {
			return nil, err
		}

		entry := &cachedPool{pool: pool}
		if r.ttl > 0 {
			entry.expiresAt = now.Add(r.ttlWithJitter())
		}
		r.mu.Lock()
		r.entry = entry
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached pool so the next GetPool reloads it.
func (r *PoolRepository) Invalidate() {
	r.mu.Lock()
	r.entry = nil
	r.mu.Unlock()
}

func (r *PoolRepository) cached(now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.entry == nil {
		return nil, false
	}
	if !r.entry.expiresAt.IsZero() && !r.entry.expiresAt.After(now) {
		return nil, false
	}
	return r.entry.pool, true
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader serves a fixed pool (useful for tests/demos).
type StaticPoolLoader struct {
	pool []domain.Question
}

func NewStaticPoolLoader(pool []domain.Question) *StaticPoolLoader {
	return &StaticPoolLoader{pool: pool}
}

func (l *StaticPoolLoader) LoadPool(_ context.Context) ([]domain.Question, error) {
	return l.pool, nil
}
