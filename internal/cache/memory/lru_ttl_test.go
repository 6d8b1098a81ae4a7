package memory

import (
	"testing"
	"time"
)

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUTTL[string, int](10, 30*time.Millisecond)

	c.Set("k", 1)
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Fatalf("get before expiry: v=%d ok=%v", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestLRUTTLEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUTTL[string, string](2, time.Minute)

	c.Set("a", "aa")
	c.Set("b", "bb")
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("touch a: miss")
	}
	c.Set("c", "cc")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c to remain")
	}
}

func TestLRUTTLSetReplacesAndRefreshes(t *testing.T) {
	c := NewLRUTTL[string, int](2, time.Minute)

	c.Set("k", 1)
	c.Set("k", 2)
	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("get after replace: v=%d ok=%v", v, ok)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}
}

func TestLRUTTLDeleteAndClear(t *testing.T) {
	c := NewLRUTTL[string, int](4, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be deleted")
	}
	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("len after clear = %d, want 0", got)
	}

	var nilCache *LRUTTL[string, int]
	nilCache.Set("x", 1)
	if _, ok := nilCache.Get("x"); ok {
		t.Fatalf("nil cache should never hit")
	}
}
