// Package sizecache remembers the pixel dimensions of remote images so the
// timeline renderer can reserve a correctly sized placeholder box before the
// image itself has downloaded.
package sizecache

import (
	"math"
	"sync"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

const (
	DefaultTTL              = 3600 * time.Second
	DefaultCompactThreshold = 10000
)

type entry struct {
	size       model.ImageSize
	insertedAt time.Time
}

// Cache is a time-expiring map from image URL to known dimensions. Entries
// live for a fixed TTL from their most recent Save; expired entries are
// treated as absent and reclaimed lazily.
type Cache struct {
	mu               sync.Mutex
	items            map[string]entry
	ttl              time.Duration
	compactThreshold int
	now              func() time.Time
}

type Option func(*Cache)

// WithTTL overrides the per-entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCompactThreshold overrides the map size past which a Save sweeps out
// expired entries.
func WithCompactThreshold(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.compactThreshold = n
		}
	}
}

// WithClock injects the time source. Tests use this to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		items:            make(map[string]entry),
		ttl:              DefaultTTL,
		compactThreshold: DefaultCompactThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the remembered dimensions for key. An entry past its TTL is
// deleted on access and reported as absent.
func (c *Cache) Get(key string) (model.ImageSize, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.items[key]
	if !ok {
		return model.ImageSize{}, false
	}
	if now.Sub(ent.insertedAt) > c.ttl {
		delete(c.items, key)
		return model.ImageSize{}, false
	}
	return ent.size, true
}

// Save records the dimensions for key, overwriting any previous entry and
// resetting its expiry clock.
func (c *Cache) Save(key string, width, height float64) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{
		size:       model.ImageSize{Width: width, Height: height},
		insertedAt: now,
	}
	if len(c.items) > c.compactThreshold {
		c.compact(now)
	}
}

// Calculate returns the placeholder box for key at the given container
// width: the remembered aspect ratio when one is cached, otherwise a square.
func (c *Cache) Calculate(key string, containerWidth float64) model.ImageSize {
	size, ok := c.Get(key)
	if !ok {
		return model.ImageSize{Width: containerWidth, Height: containerWidth}
	}
	return CalculateAspect(size.Width, size.Height, containerWidth)
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	for k, ent := range c.items {
		if now.Sub(ent.insertedAt) > c.ttl {
			delete(c.items, k)
		}
	}
}

// CalculateAspect scales width x height to fit containerWidth, preserving
// the aspect ratio. Zero or negative widths and malformed metadata produce a
// non-finite or non-positive height; those fall back to a square box.
func CalculateAspect(width, height, containerWidth float64) model.ImageSize {
	divider := width / containerWidth
	calculatedHeight := height / divider
	if calculatedHeight > 0 && !math.IsInf(calculatedHeight, 0) && !math.IsNaN(calculatedHeight) {
		return model.ImageSize{Width: containerWidth, Height: calculatedHeight}
	}
	return model.ImageSize{Width: containerWidth, Height: containerWidth}
}
