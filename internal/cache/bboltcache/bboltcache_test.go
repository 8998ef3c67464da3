package bboltcache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTempCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Fatalf("close cache: %v", err)
		}
	})
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := openTempCache(t)
	if err := cache.SetWithTTL("analysis:group-1", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := cache.Get("analysis:group-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(value) != "payload" {
		t.Fatalf("value = %q, want payload", value)
	}
}

func TestGetMiss(t *testing.T) {
	cache := openTempCache(t)
	if _, ok, err := cache.Get("missing"); err != nil || ok {
		t.Fatalf("get missing = (%v, %v), want miss without error", ok, err)
	}
}

func TestExpiredEntryIsDeleted(t *testing.T) {
	cache := openTempCache(t)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	if err := cache.SetWithTTL("analysis:group-1", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, ok, err := cache.Get("analysis:group-1"); err != nil || ok {
		t.Fatalf("get expired = (%v, %v), want miss without error", ok, err)
	}

	// A fresh write under the same key works after lazy deletion.
	if err := cache.SetWithTTL("analysis:group-1", []byte("fresh"), time.Hour); err != nil {
		t.Fatalf("set after expiry: %v", err)
	}
	value, ok, err := cache.Get("analysis:group-1")
	if err != nil || !ok {
		t.Fatalf("get fresh = (%v, %v), want hit", ok, err)
	}
	if string(value) != "fresh" {
		t.Fatalf("value = %q, want fresh", value)
	}
}

func TestDeletePattern(t *testing.T) {
	cache := openTempCache(t)
	keys := []string{"analysis:group-1", "analysis:group-2", "other:group-1"}
	for _, key := range keys {
		if err := cache.SetWithTTL(key, []byte("x"), time.Hour); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := cache.DeletePattern("analysis:"); err != nil {
		t.Fatalf("delete pattern: %v", err)
	}
	for _, key := range []string{"analysis:group-1", "analysis:group-2"} {
		if _, ok, _ := cache.Get(key); ok {
			t.Fatalf("key %s survived pattern delete", key)
		}
	}
	if _, ok, _ := cache.Get("other:group-1"); !ok {
		t.Fatal("unrelated key was deleted")
	}
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	cache := openTempCache(t)
	if err := cache.SetWithTTL("key", []byte("x"), 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
