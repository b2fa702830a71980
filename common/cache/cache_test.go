package cache

import "testing"

func TestCache_AddAndGet(t *testing.T) {
	c := New(5)
	c.Add("hello", "world")

	v, ok := c.Get("hello")
	if !ok || v != "world" {
		t.Fatalf("Get(hello) = %v, %v; want world, true", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should report false")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a")
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be present")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should still be present")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestCache_UpdateExistingKeyRefreshesRecency(t *testing.T) {
	c := New(1)
	c.Add("a", 1)
	c.Add("a", 2)

	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Fatalf("Get(a) = %v, %v; want 2, true", v, ok)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}
