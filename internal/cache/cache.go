// 包 cache：候选数据集的单槽时效缓存
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"locator/internal/candidate"
	"locator/internal/failure"
	"locator/internal/kv"
	"locator/internal/logger"
	"locator/internal/metrics"
)

const (
	DefaultKey    = "retailer_finder_cache"
	DefaultExpiry = time.Hour
)

// entry 持久化格式；写入时间为毫秒时间戳
type entry struct {
	WrittenAt  int64                 `json:"timestamp"`
	Candidates []candidate.Candidate `json:"data"`
}

// Cache 单槽缓存：整份数据集对应一个键，后写覆盖先写
// 约束：过期条目在读路径上删除且不返回；任何存储或序列化失败都按未命中或空写处理
type Cache struct {
	store  kv.Store
	key    string
	expiry time.Duration
	now    func() time.Time
	log    *slog.Logger
}

type Option func(*Cache)

func WithKey(key string) Option { return func(c *Cache) { c.key = key } }

// WithClock 替换时钟，测试中用于构造过期场景
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New expiry<=0 时使用默认一小时
func New(store kv.Store, expiry time.Duration, opts ...Option) *Cache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	c := &Cache{store: store, key: DefaultKey, expiry: expiry, now: time.Now, log: logger.Component("cache")}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Read 未过期时返回缓存的候选集
func (c *Cache) Read(ctx context.Context) ([]candidate.Candidate, bool) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.recover("read", err)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.recover("decode", err)
		c.purge(ctx)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	age := c.now().Sub(time.UnixMilli(e.WrittenAt))
	if age >= c.expiry {
		c.log.Debug("cache_expired", "age_ms", age.Milliseconds())
		c.purge(ctx)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if e.Candidates == nil {
		e.Candidates = []candidate.Candidate{}
	}
	metrics.CacheHitsTotal.Inc()
	c.log.Debug("cache_hit", "count", len(e.Candidates), "age_ms", age.Milliseconds())
	return e.Candidates, true
}

// Write 覆盖写入当前时间与候选集
func (c *Cache) Write(ctx context.Context, set []candidate.Candidate) {
	b, err := json.Marshal(entry{WrittenAt: c.now().UnixMilli(), Candidates: set})
	if err != nil {
		c.recover("encode", err)
		return
	}
	if err := c.store.Set(ctx, c.key, string(b)); err != nil {
		c.recover("write", err)
		return
	}
	c.log.Debug("cache_write", "count", len(set))
}

// Clear 删除缓存槽
func (c *Cache) Clear(ctx context.Context) { c.purge(ctx) }

func (c *Cache) purge(ctx context.Context) {
	if err := c.store.Remove(ctx, c.key); err != nil {
		c.recover("remove", err)
	}
}

func (c *Cache) recover(op string, err error) {
	metrics.CacheErrorsTotal.WithLabelValues(op).Inc()
	c.log.Debug("cache_failure", "op", op, "err", failure.New(failure.Cache, "cache."+op, err))
}
