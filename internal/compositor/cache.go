package compositor

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FrameCache keeps decoded source frames for a short time. It is owned by
// whoever creates it and handed to a Compositor explicitly. Cached frames
// are shared and must be treated as read-only.
type FrameCache struct {
	frames *expirable.LRU[string, *image.RGBA]
}

// NewFrameCache creates a cache holding at most capacity frames, each for
// ttl. The least recently used frame goes first when the cache is full.
func NewFrameCache(capacity int, ttl time.Duration) *FrameCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &FrameCache{frames: expirable.NewLRU[string, *image.RGBA](capacity, nil, ttl)}
}

// frameKey quantizes the source time to milliseconds.
func frameKey(mediaRef string, at float64) string {
	return fmt.Sprintf("%s@%d", mediaRef, int64(math.Round(at*1000)))
}

func (c *FrameCache) Get(key string) (*image.RGBA, bool) {
	return c.frames.Get(key)
}

func (c *FrameCache) Set(key string, frame *image.RGBA) {
	c.frames.Add(key, frame)
}

func (c *FrameCache) Clear() {
	c.frames.Purge()
}

func (c *FrameCache) Size() int {
	return c.frames.Len()
}
