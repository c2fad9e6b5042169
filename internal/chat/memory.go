package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Memory is the per-user conversational state that steers the intent
// machine between turns. It is ephemeral by design.
type Memory struct {
	LastItem   string `json:"last_item"`
	LastAction string `json:"last_action"` // "order" or "recommend"
	AwaitingOK bool   `json:"awaiting_ok"`
	Greeted    bool   `json:"greeted"`
}

type MemoryStore interface {
	Get(ctx context.Context, userID string) (Memory, error)
	Put(ctx context.Context, userID string, m Memory) error
}

type RedisMemory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMemory(client *redis.Client, ttl time.Duration) *RedisMemory {
	return &RedisMemory{client: client, ttl: ttl}
}

func memoryKey(userID string) string {
	return "chat:memory:" + userID
}

func (r *RedisMemory) Get(ctx context.Context, userID string) (Memory, error) {
	raw, err := r.client.Get(ctx, memoryKey(userID)).Result()
	if err == redis.Nil {
		return Memory{}, nil
	}
	if err != nil {
		return Memory{}, err
	}
	var m Memory
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Memory{}, nil
	}
	return m, nil
}

func (r *RedisMemory) Put(ctx context.Context, userID string, m Memory) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, memoryKey(userID), raw, r.ttl).Err()
}

// LocalMemory keeps session state in process for deployments without Redis.
type LocalMemory struct {
	mu       sync.Mutex
	sessions map[string]Memory
}

func NewLocalMemory() *LocalMemory {
	return &LocalMemory{sessions: make(map[string]Memory)}
}

func (l *LocalMemory) Get(_ context.Context, userID string) (Memory, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[userID], nil
}

func (l *LocalMemory) Put(_ context.Context, userID string, m Memory) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[userID] = m
	return nil
}
