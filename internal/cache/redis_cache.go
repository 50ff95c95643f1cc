package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

// RedisCache shares conversation state between replicas. Each write
// refreshes the key TTL, so idle conversations fall back to INITIAL, and so
// do values that cannot be decoded. Only transport errors reach the caller.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type stateValue struct {
	State      model.State `json:"state"`
	PendingDay *int        `json:"pendingDay,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func stateKey(userID string) string {
	return fmt.Sprintf("conv:%s", userID)
}

func (c *RedisCache) Get(ctx context.Context, userID string) (model.ConversationState, error) {
	raw, err := c.rdb.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Initial(), nil
	}
	if err != nil {
		return model.Initial(), err
	}

	var v stateValue
	if err := json.Unmarshal(raw, &v); err != nil {
		// An unreadable value would otherwise block the user until the key
		// expires; drop it and restart the conversation.
		slog.Warn("discarding undecodable conversation state", "component", "redis_cache", "phone", userID, "err", err)
		if err := c.rdb.Del(ctx, stateKey(userID)).Err(); err != nil {
			slog.Warn("delete conversation state failed", "component", "redis_cache", "phone", userID, "err", err)
		}
		return model.Initial(), nil
	}
	return model.ConversationState{
		State:      v.State.Normalize(),
		PendingDay: v.PendingDay,
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, st model.ConversationState) error {
	b, err := json.Marshal(stateValue{
		State:      st.State,
		PendingDay: st.PendingDay,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, stateKey(userID), b, c.ttl).Err()
}
