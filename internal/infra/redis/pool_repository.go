package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"knowledge-quiz-service/internal/domain"
)

const poolKey = "quiz:pool"

// PoolLoader fetches the question pool from a backing source (CSV export, database).
type PoolLoader interface {
	LoadPool(ctx context.Context) ([]domain.Question, error)
}

// PoolRepository caches the normalized question pool in Redis as one JSON value
// and falls back to a loader on cache miss. Instances sharing a Redis therefore
// fetch the source once per TTL between them.
type PoolRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := r.cached(ctx); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := r.cached(ctx); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(pool)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, poolKey, raw, r.ttlWithJitter()).Err(); err != nil {
			// serving the freshly loaded pool is still fine
			log.Printf("cache question pool in redis: %v", err)
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate removes the cached pool so the next GetPool reloads it.
func (r *PoolRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, poolKey).Err()
}

func (r *PoolRepository) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, poolKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read question pool from redis: %v", err)
		}
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		log.Printf("decode cached question pool: %v", err)
		return nil, false
	}
	return pool, true
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
