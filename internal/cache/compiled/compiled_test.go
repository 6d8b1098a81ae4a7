package compiled

import (
	"testing"
	"time"
)

const minimalApp = `{
  "appId": "demo",
  "version": "1",
  "components": [],
  "stateModel": {},
  "events": []
}`

func TestCompileMemoizesByDigest(t *testing.T) {
	c := New(CacheConfig{TTL: time.Minute, MaxEntries: 8})

	first := c.Compile("demo", []byte(minimalApp))
	if !first.OK() {
		t.Fatalf("compile failed: %+v", first.Diagnostics)
	}
	second := c.Compile("demo", []byte(minimalApp))
	if first != second {
		t.Fatalf("expected memoized result for unchanged document")
	}
}

func TestCompileRecompilesOnChangedDocument(t *testing.T) {
	c := New(CacheConfig{})

	first := c.Compile("demo", []byte(minimalApp))
	changed := []byte(`{"appId":"demo","version":"2","components":[],"stateModel":{},"events":[]}`)
	second := c.Compile("demo", changed)
	if first == second {
		t.Fatalf("expected recompile for changed document")
	}
	if second.App == nil || second.App.Version != "2" {
		t.Fatalf("recompiled result does not reflect new document: %+v", second.App)
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	c := New(CacheConfig{TTL: time.Minute, MaxEntries: 8})

	first := c.Compile("demo", []byte(minimalApp))
	c.Invalidate("demo")
	second := c.Compile("demo", []byte(minimalApp))
	if first == second {
		t.Fatalf("expected fresh result after invalidation")
	}
}

func TestNilCacheCompilesDirectly(t *testing.T) {
	var c *Cache
	res := c.Compile("demo", []byte(minimalApp))
	if !res.OK() {
		t.Fatalf("nil cache should still compile: %+v", res.Diagnostics)
	}
}
