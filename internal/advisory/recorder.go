package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

// Recorder archives completed exchanges outside the process.
type Recorder interface {
	Record(ctx context.Context, sessionID string, persona models.Persona, ex Exchange) error
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, string, models.Persona, Exchange) error { return nil }

// RedisRecorder appends each exchange to a per-session list and keeps the
// persona key in a per-session hash. Both keys expire after TTL.
type RedisRecorder struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisRecorder(client redis.Cmdable, prefix string, ttl time.Duration) *RedisRecorder {
	if prefix == "" {
		prefix = "advisor"
	}
	return &RedisRecorder{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRecorder) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *RedisRecorder) exchangesKey(id string) string {
	return fmt.Sprintf("%s:session:%s:exchanges", r.prefix, id)
}

func (r *RedisRecorder) Record(ctx context.Context, sessionID string, persona models.Persona, ex Exchange) error {
	payload, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.sessionKey(sessionID), map[string]any{
		"persona_key": persona.Key,
		"updated_at":  ex.At.UTC().Format(time.RFC3339),
	})
	pipe.RPush(ctx, r.exchangesKey(sessionID), payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.sessionKey(sessionID), r.ttl)
		pipe.Expire(ctx, r.exchangesKey(sessionID), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to archive exchange in Redis: %w", err)
	}
	return nil
}

// Exchanges reads back the archived exchanges of a session in order.
func (r *RedisRecorder) Exchanges(ctx context.Context, sessionID string) ([]Exchange, error) {
	raw, err := r.client.LRange(ctx, r.exchangesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read archived exchanges: %w", err)
	}
	out := make([]Exchange, 0, len(raw))
	for _, item := range raw {
		var ex Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exchange: %w", err)
		}
		out = append(out, ex)
	}
	return out, nil
}
