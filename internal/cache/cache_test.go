package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/plannerhq/momentum/pkg/logger"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, logger.New("error", "console", "stdout"))
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestCache(t)

	val, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get on a missing key should not error: %v", err)
	}
	if val != "" {
		t.Errorf("got %q, want empty string", val)
	}
}

func TestSetAndGet_String(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "greeting", "hello", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "hello" {
		t.Errorf("got %q, want hello", val)
	}
}

func TestSet_EncodesStructs(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	type payload struct {
		Period string `json:"period"`
		Count  int    `json:"count"`
	}
	if err := c.Set(ctx, "board", payload{Period: "weekly", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "board")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var decoded payload
	if err := json.Unmarshal([]byte(val), &decoded); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if decoded.Period != "weekly" || decoded.Count != 3 {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestSet_AppliesTTL(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "expiring", "soon", 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if ttl := mr.TTL("expiring"); ttl != 30*time.Second {
		t.Errorf("ttl = %v, want 30s", ttl)
	}

	mr.FastForward(time.Minute)
	val, err := c.Get(ctx, "expiring")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "" {
		t.Errorf("key should have expired, got %q", val)
	}
}

func TestDel(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := c.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		if val, _ := c.Get(ctx, key); val != "" {
			t.Errorf("key %s survived deletion: %q", key, val)
		}
	}

	// Deleting nothing is a no-op.
	if err := c.Del(ctx); err != nil {
		t.Errorf("empty Del should not error: %v", err)
	}
}
