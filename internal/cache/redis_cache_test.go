package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

var _ ConversationStore = (*RedisCache)(nil)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCache_Get_MissingKeyReturnsInitial(t *testing.T) {
	t.Parallel()

	_, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)

	st, err := cache.Get(context.Background(), "51999")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.State != model.StateInitial || st.PendingDay != nil {
		t.Fatalf("expected INITIAL with no pending day, got %+v", st)
	}
}

func TestRedisCache_Set_StoresJSONWithTTL(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, 10*time.Second)

	day := 2
	ctx := context.Background()
	if err := cache.Set(ctx, "51999", model.ConversationState{State: model.StateAwaitingHour, PendingDay: &day}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	key := "conv:51999"
	if !mr.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttl)
	}

	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("failed to get key %q: %v", key, err)
	}

	var got stateValue
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}
	if got.State != model.StateAwaitingHour {
		t.Fatalf("expected state %v, got %v", model.StateAwaitingHour, got.State)
	}
	if got.PendingDay == nil || *got.PendingDay != 2 {
		t.Fatalf("expected pending day 2, got %v", got.PendingDay)
	}

	st, err := cache.Get(ctx, "51999")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.State != model.StateAwaitingHour || st.PendingDay == nil || *st.PendingDay != 2 {
		t.Fatalf("unexpected round trip: %+v", st)
	}
}

func TestRedisCache_Set_OverwritesWholeRecord(t *testing.T) {
	t.Parallel()

	_, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	day := 4
	if err := cache.Set(ctx, "1", model.ConversationState{State: model.StateAwaitingHour, PendingDay: &day}); err != nil {
		t.Fatalf("first Set() error: %v", err)
	}
	if err := cache.Set(ctx, "1", model.At(model.StateSubscribed)); err != nil {
		t.Fatalf("second Set() error: %v", err)
	}

	st, err := cache.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.State != model.StateSubscribed {
		t.Fatalf("expected SUBSCRIBED, got %v", st.State)
	}
	if st.PendingDay != nil {
		t.Fatalf("expected pending day to be cleared, got %v", *st.PendingDay)
	}
}

func TestRedisCache_ExpiredKeyFallsBackToInitial(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, "1", model.At(model.StateSubscribed)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	st, err := cache.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.State != model.StateInitial {
		t.Fatalf("expected INITIAL after expiry, got %v", st.State)
	}
}

func TestRedisCache_UnknownStoredStateNormalizes(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)

	if err := mr.Set("conv:7", `{"state":42}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := cache.Get(context.Background(), "7")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if st.State != model.StateInitial {
		t.Fatalf("expected INITIAL for unknown value, got %v", st.State)
	}
}

func TestRedisCache_CorruptValueFallsBackToInitial(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)

	if err := mr.Set("conv:8", "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := cache.Get(context.Background(), "8")
	if err != nil {
		t.Fatalf("expected no error for an undecodable value, got %v", err)
	}
	if st.State != model.StateInitial || st.PendingDay != nil {
		t.Fatalf("expected INITIAL, got %+v", st)
	}
	if mr.Exists("conv:8") {
		t.Fatalf("expected corrupt key to be removed")
	}

	if err := cache.Set(context.Background(), "8", model.At(model.StateAwaitingConfirmation)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if st, _ := cache.Get(context.Background(), "8"); st.State != model.StateAwaitingConfirmation {
		t.Fatalf("expected the conversation to continue, got %v", st.State)
	}
}

func TestRedisCache_Get_ConnectionErrorReturned(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Minute)
	mr.Close()

	if _, err := cache.Get(context.Background(), "8"); err == nil {
		t.Fatalf("expected transport error, got nil")
	}
}

func TestRedisCache_Set_ContextCanceled(t *testing.T) {
	t.Parallel()

	_, rdb := newRedis(t)
	cache := NewRedisCache(rdb, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.Set(ctx, "1", model.Initial()); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}
