// 包 loader：缓存优先的候选集加载；命中时后台刷新
package loader

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"locator/internal/cache"
	"locator/internal/candidate"
	"locator/internal/failure"
	"locator/internal/logger"
	"locator/internal/metrics"
	"locator/internal/source"
)

// Loader 缓存命中立即返回并调度一次后台刷新；未命中同步拉取后写缓存
// 约束：后台刷新带代次，被新一轮 Load 取代的刷新不写缓存
type Loader struct {
	cache *cache.Cache
	src   source.Source
	log   *slog.Logger

	gen    atomic.Uint64
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(c *cache.Cache, src source.Source) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{cache: c, src: src, log: logger.Component("loader"), ctx: ctx, cancel: cancel}
}

// Load 返回候选集；拉取失败时返回 failure.Load 错误
func (l *Loader) Load(ctx context.Context) ([]candidate.Candidate, error) {
	gen := l.gen.Add(1)
	if set, ok := l.cache.Read(ctx); ok {
		l.log.Debug("loader_cache_hit", "count", len(set), "gen", gen)
		l.refresh(gen)
		return set, nil
	}
	l.log.Debug("loader_cache_miss", "gen", gen)
	set, err := l.src.Fetch(ctx)
	if err != nil {
		return nil, failure.New(failure.Load, "loader.load", err)
	}
	l.cache.Write(ctx, set)
	l.log.Info("loader_fetched", "count", len(set), "gen", gen)
	return set, nil
}

func (l *Loader) refresh(gen uint64) {
	if l.ctx.Err() != nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		set, err := l.src.Fetch(l.ctx)
		if err != nil {
			metrics.BackgroundRefreshTotal.WithLabelValues("failed").Inc()
			l.log.Warn("loader_refresh_failed", "gen", gen, "err", err)
			return
		}
		if cur := l.gen.Load(); cur != gen {
			metrics.BackgroundRefreshTotal.WithLabelValues("superseded").Inc()
			l.log.Debug("loader_refresh_superseded", "gen", gen, "current", cur)
			return
		}
		l.cache.Write(l.ctx, set)
		metrics.BackgroundRefreshTotal.WithLabelValues("written").Inc()
		l.log.Debug("loader_refresh_written", "gen", gen, "count", len(set))
	}()
}

// Wait 等待进行中的后台刷新结束
func (l *Loader) Wait() { l.wg.Wait() }

// Close 取消进行中的后台刷新并等待其退出
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}
