package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// newTestRedis connects to REDIS_ADDR under a throwaway prefix.
func newTestRedis(t *testing.T) *RedisRepository {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	repo, err := NewRedisRepository(ctx, RedisConfig{Addr: addr, Prefix: "stocksentinel-test-" + uuid.NewString()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		keys, _ := repo.client.Keys(ctx, repo.prefix+":*").Result()
		if len(keys) > 0 {
			repo.client.Del(ctx, keys...)
		}
		repo.Close()
	})
	return repo
}

func TestRedisRepository_RoundTrip(t *testing.T) {
	checkRoundTrip(t, newTestRedis(t))
}

func TestRedisRepository_KeyLayout(t *testing.T) {
	repo := newTestRedis(t)
	ctx := context.Background()
	h := sampleHistory(t)

	for _, code := range []string{"000858", "600519"} {
		if err := repo.Save(ctx, code, h); err != nil {
			t.Fatal(err)
		}
	}
	// A second save overwrites the value and leaves the code set unchanged.
	if err := repo.Save(ctx, "600519", h); err != nil {
		t.Fatal(err)
	}

	raw, err := repo.client.Get(ctx, repo.prefix+":history:600519").Result()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(raw, "date,open,high,low,close,volume,amount,turnover,K,D,J\n") {
		t.Errorf("history value is not CSV:\n%s", raw)
	}

	members, err := repo.client.SMembers(ctx, repo.prefix+":codes").Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Errorf("expected 2 codes in the set, got %v", members)
	}
	codes, err := repo.Codes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 2 || codes[0] != "000858" || codes[1] != "600519" {
		t.Errorf("codes = %v, want sorted [000858 600519]", codes)
	}
}
