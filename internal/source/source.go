// 包 source：候选数据源；HTTP 接口、Postgres、Elasticsearch 与 Overpass 四种实现
package source

import (
	"context"
	"time"

	"locator/internal/candidate"
	"locator/internal/failure"
	"locator/internal/logger"
	"locator/internal/metrics"
)

// Source 一次性取回完整候选集
// 约束：失败时返回 failure.Load 类错误，绝不以空集代替失败
type Source interface {
	Fetch(ctx context.Context) ([]candidate.Candidate, error)
}

// Func 函数适配器，便于测试注入
type Func func(ctx context.Context) ([]candidate.Candidate, error)

func (f Func) Fetch(ctx context.Context) ([]candidate.Candidate, error) { return f(ctx) }

// instrument 统一计量与日志，并把错误归类为加载失败
func instrument(name string, t0 time.Time, cands []candidate.Candidate, err error) ([]candidate.Candidate, error) {
	dur := time.Since(t0).Milliseconds()
	metrics.SourceDurationMs.WithLabelValues(name).Observe(float64(dur))
	if err != nil {
		metrics.SourceFailTotal.WithLabelValues(name).Inc()
		logger.L().Error("source_fetch_error", "source", name, "err", err, "duration_ms", dur)
		return nil, failure.New(failure.Load, "source."+name, err)
	}
	if cands == nil {
		cands = []candidate.Candidate{}
	}
	logger.L().Debug("source_fetch", "source", name, "count", len(cands), "duration_ms", dur)
	return cands, nil
}
