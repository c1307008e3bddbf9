// S3-FIFO eviction layer ("Simple, Scalable, FIFO-based cache eviction",
// Yang et al., 2023), adapted from the teacher's Ollama response cache to
// a generic byte-value content-addressed cache.
//
// Two FIFO queues and a bounded ghost set:
//
//   - S (small, ~10% of capacity): probationary queue. New keys land here.
//   - M (main, ~90% of capacity): protected queue. Promoted from S after
//     at least one hit (freq > 0).
//   - G (ghost): a bounded circular buffer of keys recently evicted from
//     S. A key found in G on insert bypasses S and lands directly in M.
//
// Per-key state: a saturating frequency counter (max 3), incremented on
// every Get hit and reset to 0 on M promotion.
package cache

import (
	"container/list"
	"sync"
)

type s3fifoEntry struct {
	value []byte
	freq  uint8
	elem  *list.Element
	inM   bool
}

// S3FIFOCache wraps a Store with an S3-FIFO in-memory eviction layer.
type S3FIFOCache struct {
	mu sync.Mutex

	capacity int
	sTarget  int
	ghostCap int

	entries map[string]*s3fifoEntry
	sQueue  *list.List
	mQueue  *list.List

	ghostBuf   []string
	ghostSet   map[string]struct{}
	ghostHead  int
	ghostCount int

	backing Store
}

// NewS3FIFOCache returns a Store that applies S3-FIFO eviction in front
// of backing. capacity is the maximum number of items kept in memory (and
// on disk); values < 2 are clamped to 2.
func NewS3FIFOCache(backing Store, capacity int) *S3FIFOCache {
	if capacity < 2 {
		capacity = 2
	}
	sTarget := capacity / 10
	if sTarget < 1 {
		sTarget = 1
	}
	ghostCap := 2 * sTarget
	if ghostCap < 4 {
		ghostCap = 4
	}
	return &S3FIFOCache{
		capacity: capacity,
		sTarget:  sTarget,
		ghostCap: ghostCap,
		entries:  make(map[string]*s3fifoEntry, capacity),
		sQueue:   list.New(),
		mQueue:   list.New(),
		ghostBuf: make([]string, ghostCap),
		ghostSet: make(map[string]struct{}, ghostCap),
		backing:  backing,
	}
}

// Get returns the value for key, re-warming from the backing store on a
// memory miss.
func (c *S3FIFOCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.freq < 3 {
			e.freq++
		}
		v := e.value
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	value, ok := c.backing.Get(key)
	if !ok {
		return nil, false
	}
	c.insertLocked(key, value)
	return value, true
}

// Set stores key → value in memory and in the backing store. If the key
// is already resident, only the value is updated; queue position is
// unchanged.
func (c *S3FIFOCache) Set(key string, value []byte) {
	c.insertLocked(key, value)
	c.backing.Set(key, value)
}

// Delete removes key from memory and from the backing store.
func (c *S3FIFOCache) Delete(key string) {
	c.mu.Lock()
	c.removeFromMemory(key)
	c.mu.Unlock()
	c.backing.Delete(key)
}

// Close closes the backing store. In-memory state is discarded.
func (c *S3FIFOCache) Close() error {
	return c.backing.Close()
}

func (c *S3FIFOCache) insertLocked(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		return
	}

	inM := c.ghostContains(key)
	var elem *list.Element
	if inM {
		elem = c.mQueue.PushBack(key)
	} else {
		elem = c.sQueue.PushBack(key)
	}
	c.entries[key] = &s3fifoEntry{value: value, freq: 0, elem: elem, inM: inM}

	for c.sQueue.Len()+c.mQueue.Len() > c.capacity {
		c.evictOne()
	}
}

func (c *S3FIFOCache) evictOne() {
	if c.sQueue.Len() > 0 {
		c.evictFromS()
		return
	}
	c.evictFromM()
}

func (c *S3FIFOCache) evictFromS() {
	front := c.sQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.sQueue.Remove(front)
		return
	}
	c.sQueue.Remove(front)

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if e.freq > 0 {
		e.freq = 0
		e.inM = true
		e.elem = c.mQueue.PushBack(key)
		mTarget := c.capacity - c.sTarget
		if c.mQueue.Len() > mTarget {
			c.evictFromM()
		}
	} else {
		delete(c.entries, key)
		c.ghostAdd(key)
		go c.backing.Delete(key)
	}
}

func (c *S3FIFOCache) evictFromM() {
	front := c.mQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.mQueue.Remove(front)
		return
	}
	c.mQueue.Remove(front)
	delete(c.entries, key)
	go c.backing.Delete(key)
}

func (c *S3FIFOCache) removeFromMemory(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.inM {
		c.mQueue.Remove(e.elem)
	} else {
		c.sQueue.Remove(e.elem)
	}
	delete(c.entries, key)
}

func (c *S3FIFOCache) ghostContains(key string) bool {
	_, ok := c.ghostSet[key]
	return ok
}

func (c *S3FIFOCache) ghostAdd(key string) {
	if _, exists := c.ghostSet[key]; exists {
		return
	}
	if c.ghostCount == c.ghostCap {
		oldest := c.ghostBuf[c.ghostHead]
		delete(c.ghostSet, oldest)
		c.ghostHead = (c.ghostHead + 1) % c.ghostCap
		c.ghostCount--
	}
	writeIdx := (c.ghostHead + c.ghostCount) % c.ghostCap
	c.ghostBuf[writeIdx] = key
	c.ghostSet[key] = struct{}{}
	c.ghostCount++
}
