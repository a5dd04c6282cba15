package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testCaches(t *testing.T) map[string]DedupeCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return map[string]DedupeCache{
		"memory": NewMemoryDedupeCache(),
		"redis":  NewRedisDedupeCache(client, logger),
	}
}

func TestDedupeCache_MarkThenSeen(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	key := DedupeKey{EventID: "evt-1", OffsetMinutes: 30, Occurrence: occ}

	for name, cache := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if cache.Seen(ctx, key) {
				t.Fatal("fresh key should not be seen")
			}
			if err := cache.Mark(ctx, key); err != nil {
				t.Fatalf("mark failed: %v", err)
			}
			if !cache.Seen(ctx, key) {
				t.Error("marked key should be seen")
			}

			// A different occurrence of the same event and offset is a
			// distinct key: rollover makes the reminder sendable again.
			next := key
			next.Occurrence = occ.AddDate(0, 0, 1)
			if cache.Seen(ctx, next) {
				t.Error("next occurrence should not be seen")
			}
		})
	}
}

func TestDedupeCache_EvictDropsPassedOccurrences(t *testing.T) {
	occ := time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)
	old := DedupeKey{EventID: "evt-old", OffsetMinutes: 0, Occurrence: occ}
	fresh := DedupeKey{EventID: "evt-new", OffsetMinutes: 0, Occurrence: occ.Add(3 * time.Hour)}

	for name, cache := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := cache.Mark(ctx, old); err != nil {
				t.Fatalf("mark failed: %v", err)
			}
			if err := cache.Mark(ctx, fresh); err != nil {
				t.Fatalf("mark failed: %v", err)
			}

			if err := cache.Evict(ctx, occ.Add(time.Hour)); err != nil {
				t.Fatalf("evict failed: %v", err)
			}

			if cache.Seen(ctx, old) {
				t.Error("passed occurrence should have been evicted")
			}
			if !cache.Seen(ctx, fresh) {
				t.Error("future occurrence must survive eviction")
			}
		})
	}
}

func TestMemoryDedupeCache_Bounded(t *testing.T) {
	cache := NewMemoryDedupeCache()
	ctx := context.Background()
	base := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		key := DedupeKey{EventID: "evt", OffsetMinutes: i, Occurrence: base}
		if err := cache.Mark(ctx, key); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}
	if cache.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", cache.Len())
	}

	if err := cache.Evict(ctx, base.Add(time.Hour)); err != nil {
		t.Fatalf("evict failed: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("eviction should bound the cache, %d entries left", cache.Len())
	}
}
