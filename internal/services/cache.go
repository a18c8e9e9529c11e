package services

import (
	"container/list"
	"sync"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
)

// VerdictKey identifies a verdict: the same bytes scored by the same model
// at the same input size and thresholds always produce the same verdict.
type VerdictKey struct {
	Digest           string
	FrameThreshold   float64
	VideoFakePercent float64
	Model            string
	ImageSize        int
}

func KeyFor(digest string, cfg DetectorConfig) VerdictKey {
	return VerdictKey{
		Digest:           digest,
		FrameThreshold:   cfg.FrameThreshold,
		VideoFakePercent: cfg.VideoFakePercent,
		Model:            cfg.Model,
		ImageSize:        cfg.ImageSize,
	}
}

type cacheEntry struct {
	key     VerdictKey
	verdict models.VideoVerdict
}

// VerdictCache is a fixed-size LRU of verdicts. A zero or negative capacity
// disables it.
type VerdictCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[VerdictKey]*list.Element
}

func NewVerdictCache(capacity int) *VerdictCache {
	return &VerdictCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[VerdictKey]*list.Element),
	}
}

func (c *VerdictCache) Get(key VerdictKey) (models.VideoVerdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return models.VideoVerdict{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).verdict, true
}

func (c *VerdictCache) Put(key VerdictKey, v models.VideoVerdict) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).verdict = v
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, verdict: v})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *VerdictCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
