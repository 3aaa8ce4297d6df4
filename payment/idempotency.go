package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "transfer:"
	idempotencyKeyTTL    = 24 * time.Hour

	statePending = "pending"
	stateDone    = "done"
)

// Idempotency records transfer progress per transaction id so a retried
// transfer never reaches the processor after it already succeeded.
type Idempotency interface {
	// Claim marks key pending. It returns false when the key is already
	// pending or done.
	Claim(ctx context.Context, key string) (bool, error)
	Done(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string) error
	// Release forgets a pending claim so the transfer can be tried again
	Release(ctx context.Context, key string) error
}

// MemoryIdempotency keeps claims in process memory
type MemoryIdempotency struct {
	mu    sync.Mutex
	state map[string]string
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{state: map[string]string{}}
}

func (m *MemoryIdempotency) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state[key]; ok {
		return false, nil
	}
	m.state[key] = statePending
	return true, nil
}

func (m *MemoryIdempotency) Done(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[key] == stateDone, nil
}

func (m *MemoryIdempotency) Complete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = stateDone
	return nil
}

func (m *MemoryIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state[key] == statePending {
		delete(m.state, key)
	}
	return nil
}

// RedisIdempotency shares claims between instances through redis SETNX
type RedisIdempotency struct {
	client *redis.Client
}

func NewRedisIdempotency(client *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{client: client}
}

func (r *RedisIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, statePending, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisIdempotency) Done(ctx context.Context, key string) (bool, error) {
	v, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == stateDone, nil
}

func (r *RedisIdempotency) Complete(ctx context.Context, key string) error {
	return r.client.Set(ctx, idempotencyKeyPrefix+key, stateDone, idempotencyKeyTTL).Err()
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

func (r *RedisIdempotency) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, r.client, []string{idempotencyKeyPrefix + key}, statePending).Err()
}
