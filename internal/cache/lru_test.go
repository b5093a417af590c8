package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4")

	if _, found := c.Get("key1"); found {
		t.Fatal("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Fatalf("%s should still exist", k)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("size = %d, want 3", c.Size())
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	c, _ := newTestCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be gone")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, clock := newTestCache[string](10, time.Minute)
	c.Set("k", "v")

	clock.t = clock.t.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.t = clock.t.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry still counted, size = %d", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c, _ := newTestCache[int](10, time.Hour)
	c.Set("u1:2026-01", 1)
	c.Set("u1:2026-02", 2)
	c.Set("u2:2026-01", 3)

	if n := c.DeletePrefix("u1:"); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if _, ok := c.Get("u2:2026-01"); !ok {
		t.Fatal("other user's entry was removed")
	}
}

func TestManagerCleanNow(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager()
	m.Register("test", c)
	if n := m.CleanNow(context.Background()); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
	m.Stop()
}

func TestManagerStopsBackgroundCleanup(t *testing.T) {
	m := NewManager()
	m.Register("empty", NewLRUCache[int](1, time.Second))
	m.StartCleanup(context.Background(), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}
