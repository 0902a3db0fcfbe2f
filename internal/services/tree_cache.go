package services

import (
	"fmt"
	"inkwell/internal/utils"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// TreeCache holds viewer-independent comment trees keyed by post, limit and depth.
// Trees are copied on the way out so callers may overlay per-viewer state.
type TreeCache struct {
	cache *utils.TTLCache
	ttl   time.Duration
	group singleflight.Group

	// generations are drawn from lastGen, which only grows, so a post whose
	// entry was evicted never gets a generation it used before.
	mu          sync.Mutex
	lastGen     uint64
	generations *lru.Cache[uint, uint64]
}

func NewTreeCache(size int, ttl time.Duration) (*TreeCache, error) {
	c, err := utils.NewTTLCache(size)
	if err != nil {
		return nil, err
	}
	gens, err := lru.New[uint, uint64](size)
	if err != nil {
		return nil, err
	}
	return &TreeCache{cache: c, ttl: ttl, generations: gens}, nil
}

func treeKeyPrefix(postID uint) string {
	return fmt.Sprintf("comments:tree:%d:", postID)
}

func (c *TreeCache) generation(postID uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen, ok := c.generations.Get(postID); ok {
		return gen
	}
	c.lastGen++
	c.generations.Add(postID, c.lastGen)
	return c.lastGen
}

func (c *TreeCache) key(postID uint, limit, depth int) string {
	return fmt.Sprintf("%sg%d:%d:%d", treeKeyPrefix(postID), c.generation(postID), limit, depth)
}

// GetOrBuild returns a copy of the cached tree, building it once on a miss.
// hit reports whether the tree came from the cache.
func (c *TreeCache) GetOrBuild(postID uint, limit, depth int, build func() (*Tree, error)) (tree *Tree, hit bool, err error) {
	key := c.key(postID, limit, depth)
	if v, ok := c.cache.Get(key).(*Tree); ok {
		return v.clone(), true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		t, err := build()
		if err != nil {
			return nil, err
		}
		// a tree built across an invalidation is stored under the old generation and never read
		c.cache.Set(key, t, c.ttl)
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Tree).clone(), false, nil
}

// Invalidate drops every cached tree of a post.
func (c *TreeCache) Invalidate(postID uint) {
	c.mu.Lock()
	c.lastGen++
	c.generations.Add(postID, c.lastGen)
	c.mu.Unlock()
	c.cache.DeletePrefix(treeKeyPrefix(postID))
}
