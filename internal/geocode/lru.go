package geocode

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// LRU 进程内检索结果缓存（规范化检索词为键）
// 背景：同一会话内反复检索同一地名，避免重复请求外部服务
// 约束：仅缓存成功结果；TTL 到期后惰性删除
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type lruItem struct {
	k   string
	v   Place
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 256
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(k string) (Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(lruItem)
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return Place{}, false
}

func (c *LRU) Set(k string, v Place) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := lruItem{k: k, v: v, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = item
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(item)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(lruItem).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// Cached 在任意 Geocoder 前加一层 LRU
type Cached struct {
	next  Geocoder
	cache *LRU
}

func NewCached(next Geocoder, cache *LRU) *Cached { return &Cached{next: next, cache: cache} }

func (c *Cached) Geocode(ctx context.Context, query string) (Place, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.next.Geocode(ctx, query)
	if err != nil {
		return Place{}, err
	}
	c.cache.Set(key, p)
	return p, nil
}
