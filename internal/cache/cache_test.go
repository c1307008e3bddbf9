package cache

import "testing"

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k1", []byte("v1"))
	v, ok := s.Get("k1")
	if !ok || string(v) != "v1" {
		t.Fatalf("want v1, got %q ok=%v", v, ok)
	}
}

func TestS3FIFOCacheEvictsUnderCapacity(t *testing.T) {
	backing := NewMemoryStore()
	c := NewS3FIFOCache(backing, 4)

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i%26))
		c.Set(key, []byte{byte(i)})
	}

	count := 0
	c.mu.Lock()
	count = len(c.entries)
	c.mu.Unlock()
	if count > 4 {
		t.Fatalf("expected in-memory entries bounded to capacity, got %d", count)
	}
}

func TestS3FIFOCacheRewarmsFromBacking(t *testing.T) {
	backing := NewMemoryStore()
	c := NewS3FIFOCache(backing, 2)

	c.Set("k1", []byte("v1"))
	c.Delete("k1") // removes k1 from memory and from the backing store

	backing.Set("k1", []byte("v1-direct"))
	v, ok := c.Get("k1")
	if !ok || string(v) != "v1-direct" {
		t.Fatalf("want re-warm from backing store, got %q ok=%v", v, ok)
	}
}
