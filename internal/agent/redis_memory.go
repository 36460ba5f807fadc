package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// RedisMemory keeps transcripts in Redis lists with a sliding window and TTL.
type RedisMemory struct {
	client *redis.Client
	prefix string
	window int
	ttl    time.Duration
}

// NewRedisMemory constructs a Redis backed memory. window <= 0 keeps every
// message and ttl <= 0 disables expiry. The window is applied in whole turns.
func NewRedisMemory(client *redis.Client, prefix string, window int, ttl time.Duration) *RedisMemory {
	if prefix == "" {
		prefix = "campus:memory"
	}
	return &RedisMemory{client: client, prefix: prefix, window: turnWindow(window), ttl: ttl}
}

func (m *RedisMemory) key(key string) string {
	return m.prefix + ":" + key
}

func (m *RedisMemory) Load(ctx context.Context, key string) ([]ai.Message, error) {
	values, err := m.client.LRange(ctx, m.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load memory: %w", err)
	}

	messages := make([]ai.Message, 0, len(values))
	for _, value := range values {
		var message ai.Message
		if err := json.Unmarshal([]byte(value), &message); err != nil {
			return nil, fmt.Errorf("decode memory entry: %w", err)
		}
		messages = append(messages, message)
	}
	return fromFirstUser(messages), nil
}

func (m *RedisMemory) Append(ctx context.Context, key string, messages ...ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("encode memory entry: %w", err)
		}
		values = append(values, payload)
	}

	redisKey := m.key(key)
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, redisKey, values...)
	if m.window > 0 {
		pipe.LTrim(ctx, redisKey, int64(-m.window), -1)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, redisKey, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}

func (m *RedisMemory) Clear(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.key(key)).Err(); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}
