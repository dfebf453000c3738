package synctree

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// renderCache memoizes View.render() results keyed by the view's path,
// its serverVersion generation and the ordered set of write ids layered
// onto it; View.render only uses a hit computed from the same
// serverVersion snapshot it holds. Multiple Views at the same SyncPoint frequently recompute
// against the same inputs (e.g. a value listener and a child listener
// on one node); this is a pure in-memory speed-up, never a persistence
// layer, so it does not touch the "persistent on-disk cache" Non-goal.
type renderCache struct {
	cache *lru.Cache[string, cachedRender]
}

type cachedRender struct {
	serverGen int64
	result    interface{}
}

func newRenderCache(size int) *renderCache {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, cachedRender](size)
	return &renderCache{cache: c}
}

func renderKey(serverGen int64, writeIDs []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:", serverGen)
	for _, id := range writeIDs {
		fmt.Fprintf(&b, "%d,", id)
	}
	return b.String()
}

func (c *renderCache) get(key string) (interface{}, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.result, true
}

func (c *renderCache) put(key string, serverGen int64, result interface{}) {
	c.cache.Add(key, cachedRender{serverGen: serverGen, result: result})
}
