package toolcache

import (
	"fmt"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := New()

	if _, ok := c.Get("file:a.go:main"); ok {
		t.Fatal("Get on empty cache should miss")
	}
	if s := c.Stats(); s.Misses != 1 || s.Hits != 0 {
		t.Fatalf("stats after miss = %+v", s)
	}

	c.Set("file:a.go:main", "package a")
	v, ok := c.Get("file:a.go:main")
	if !ok || v != "package a" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Fatalf("stats after hit = %+v", s)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New()
	c.Set("k", "v")
	if !c.Invalidate("k") {
		t.Fatal("Invalidate should report a present key")
	}
	if c.Invalidate("k") {
		t.Fatal("Invalidate should report an absent key")
	}
	if s := c.Stats(); s.Invalidations != 1 || s.Size != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCache_InvalidateByPrefix(t *testing.T) {
	c := New()
	keys := []string{"tree:src:d0:main", "tree:src:d2:main", "tree:lib:d0:develop", "file:tree:main", "diff:1"}
	for _, k := range keys {
		c.Set(k, k)
	}
	if n := c.InvalidateByPrefix("tree:"); n != 3 {
		t.Fatalf("removed %d, want 3", n)
	}
	for _, k := range []string{"file:tree:main", "diff:1"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should survive", k)
		}
	}
	if s := c.Stats(); s.Size != 2 || s.Invalidations != 3 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCache_PrefixAndSuffixIsSubsetOfPrefix(t *testing.T) {
	keys := []string{"tree:src:d0:main", "tree:.:d1:main", "tree:src:d0:develop", "tree:main", "tree:x:d0:feature/main", "file:a:main"}
	fill := func() *Cache {
		c := New()
		for _, k := range keys {
			c.Set(k, k)
		}
		return c
	}

	byPrefix := fill()
	wide := byPrefix.InvalidateByPrefix("tree:")

	scoped := fill()
	narrow := scoped.InvalidateByPrefixAndSuffix("tree:", ":main")
	if narrow != 2 {
		t.Fatalf("scoped invalidation removed %d, want 2", narrow)
	}
	if narrow > wide {
		t.Fatalf("prefix+suffix removed %d, more than prefix alone (%d)", narrow, wide)
	}
	for _, k := range []string{"tree:src:d0:develop", "tree:x:d0:feature/main", "tree:main"} {
		if _, ok := scoped.Get(k); !ok {
			t.Fatalf("%s should survive", k)
		}
	}
}

func TestCache_PreservesDiffValuesOnInvalidation(t *testing.T) {
	c := New()
	c.Set("diff:7", "old diff")
	c.Set("file:a:main", "content")

	if _, ok := c.Previous("diff:7"); ok {
		t.Fatal("nothing should be preserved before invalidation")
	}
	c.InvalidateByPrefix("")
	if v, ok := c.Previous("diff:7"); !ok || v != "old diff" {
		t.Fatalf("Previous(diff:7) = %q, %v", v, ok)
	}
	if _, ok := c.Previous("file:a:main"); ok {
		t.Fatal("file entries are not preserved")
	}

	c.Set("diff:7", "newer diff")
	c.Invalidate("diff:7")
	if v, _ := c.Previous("diff:7"); v != "newer diff" {
		t.Fatalf("Previous should be overwritten, got %q", v)
	}
}

func TestCache_ClearKeepsCounters(t *testing.T) {
	c := New(WithPreservedPrefix("tree:"))
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("tree:%d:d0:main", i), "x")
	}
	c.Get("tree:0:d0:main")
	c.Clear()

	s := c.Stats()
	if s.Size != 0 || s.Hits != 1 || s.Invalidations != 0 {
		t.Fatalf("stats after Clear = %+v", s)
	}
	if _, ok := c.Previous("tree:0:d0:main"); ok {
		t.Fatal("Clear should not preserve values")
	}
}

func TestStats_HitRate(t *testing.T) {
	if r := (Stats{}).HitRate(); r != 0 {
		t.Fatalf("empty hit rate = %v", r)
	}
	if r := (Stats{Hits: 3, Misses: 1}).HitRate(); r != 0.75 {
		t.Fatalf("hit rate = %v, want 0.75", r)
	}
}
