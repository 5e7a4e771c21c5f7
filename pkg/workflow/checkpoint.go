package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Checkpoint is the state of one thread right after Node finished.
type Checkpoint[S any] struct {
	Graph    string    `json:"graph"`
	ThreadID string    `json:"thread_id"`
	Node     string    `json:"node"`
	Next     string    `json:"next"`
	Step     int       `json:"step"`
	State    S         `json:"state"`
	SavedAt  time.Time `json:"saved_at"`
}

// CheckpointStore persists checkpoints per (graph, thread). Load returns
// ErrNoCheckpoint when nothing was saved.
type CheckpointStore[S any] interface {
	Save(ctx context.Context, cp Checkpoint[S]) error
	Load(ctx context.Context, graph, threadID string) (Checkpoint[S], error)
	Delete(ctx context.Context, graph, threadID string) error
}

func checkpointKey(graph, threadID string) string {
	return graph + ":" + threadID
}

// MemoryCheckpointStore keeps JSON snapshots in process memory, so a loaded
// state never aliases the slices of a running one.
type MemoryCheckpointStore[S any] struct {
	cache *cache.Cache
}

func NewMemoryCheckpointStore[S any](ttl time.Duration) *MemoryCheckpointStore[S] {
	return &MemoryCheckpointStore[S]{cache: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCheckpointStore[S]) Save(_ context.Context, cp Checkpoint[S]) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	m.cache.Set(checkpointKey(cp.Graph, cp.ThreadID), data, cache.DefaultExpiration)
	return nil
}

func (m *MemoryCheckpointStore[S]) Load(_ context.Context, graph, threadID string) (Checkpoint[S], error) {
	var cp Checkpoint[S]
	raw, found := m.cache.Get(checkpointKey(graph, threadID))
	if !found {
		return cp, fmt.Errorf("%w: %s/%s", ErrNoCheckpoint, graph, threadID)
	}
	if err := json.Unmarshal(raw.([]byte), &cp); err != nil {
		return cp, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

func (m *MemoryCheckpointStore[S]) Delete(_ context.Context, graph, threadID string) error {
	m.cache.Delete(checkpointKey(graph, threadID))
	return nil
}

const redisCheckpointPrefix = "workflow:checkpoint:"

// RedisCheckpointStore shares checkpoints between processes.
type RedisCheckpointStore[S any] struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCheckpointStore[S any](client redis.Cmdable, ttl time.Duration) *RedisCheckpointStore[S] {
	return &RedisCheckpointStore[S]{client: client, ttl: ttl}
}

func (r *RedisCheckpointStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return r.client.Set(ctx, redisCheckpointPrefix+checkpointKey(cp.Graph, cp.ThreadID), data, r.ttl).Err()
}

func (r *RedisCheckpointStore[S]) Load(ctx context.Context, graph, threadID string) (Checkpoint[S], error) {
	var cp Checkpoint[S]
	data, err := r.client.Get(ctx, redisCheckpointPrefix+checkpointKey(graph, threadID)).Bytes()
	if err == redis.Nil {
		return cp, fmt.Errorf("%w: %s/%s", ErrNoCheckpoint, graph, threadID)
	}
	if err != nil {
		return cp, err
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

func (r *RedisCheckpointStore[S]) Delete(ctx context.Context, graph, threadID string) error {
	return r.client.Del(ctx, redisCheckpointPrefix+checkpointKey(graph, threadID)).Err()
}
