package catalog

import (
	"testing"
	"time"
)

func TestCacheReturnsValueBeforeExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("key", "value", 5*time.Minute)
	clock.Advance(4 * time.Minute)

	raw, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit before expiry")
	}
	if raw.(string) != "value" {
		t.Fatalf("unexpected cached value: %v", raw)
	}
}

func TestCacheExpiredEntryBehavesAsMissAndIsEvicted(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("key", "value", 5*time.Minute)
	clock.Advance(5*time.Minute + time.Second)

	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache miss after expiry")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, %d entries remain", cache.Len())
	}
}

func TestCacheSetOverwritesExistingEntry(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("key", "first", time.Minute)
	cache.Set("key", "second", time.Minute)

	raw, ok := cache.Get("key")
	if !ok || raw.(string) != "second" {
		t.Fatalf("expected overwritten value, got %v (hit=%v)", raw, ok)
	}
}

func TestCacheInvalidateMatchingRemovesSubstringMatches(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("category-apps-games", []App{}, time.Minute)
	cache.Set("category-apps-travel", []App{}, time.Minute)
	cache.Set("categories", []Category{}, time.Minute)

	cache.InvalidateMatching("category-apps-")

	if _, ok := cache.Get("category-apps-games"); ok {
		t.Fatalf("expected games listing to be invalidated")
	}
	if _, ok := cache.Get("category-apps-travel"); ok {
		t.Fatalf("expected travel listing to be invalidated")
	}
	if _, ok := cache.Get("categories"); !ok {
		t.Fatalf("expected category listing to survive")
	}
}

func TestCacheLookupRejectsMismatchedType(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("key", "a string", time.Minute)

	if _, ok := cacheLookup[[]App](cache, "key"); ok {
		t.Fatalf("expected typed lookup to miss on mismatched type")
	}
}

func TestCacheZeroTTLExpiresImmediatelyAfterAdvance(t *testing.T) {
	clock := newFakeClock()
	cache := NewTTLCache(clock.Now)

	cache.Set("key", "value", 0)

	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected entry to be readable at the instant it was stored")
	}
	clock.Advance(time.Nanosecond)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected zero ttl entry to expire once time advances")
	}
}
