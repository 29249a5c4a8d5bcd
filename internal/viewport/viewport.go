// 包 viewport：保证最近的若干候选始终处于可见范围内
package viewport

import (
	"math"
	"sort"

	"locator/internal/geo"
	"locator/internal/metrics"
	"locator/internal/rank"
)

const (
	DefaultMinVisible = 3
	DefaultTooFar     = 25.0
	DefaultPadding    = 50
)

// Config 可见性保证参数
// 约束：MaxVisible 大于 0 时限制受保护集合的规模上限；TooFar 单位与排序单位一致
type Config struct {
	MinVisible int
	MaxVisible int
	TooFar     float64
	Padding    int
}

func DefaultConfig() Config {
	return Config{MinVisible: DefaultMinVisible, TooFar: DefaultTooFar, Padding: DefaultPadding}
}

// Decision 一次评估的结论
type Decision struct {
	// Guarded 必须可见的结果下标（相对于排序结果）
	Guarded []int
	Visible int
	Expand  bool
	Region  geo.Bounds
	// FarNotice 最近的候选也超出 TooFar，提示“附近无结果，显示最近的门店”
	FarNotice bool
	Closest   float64
}

// Fitter 视图扩展的执行方，由导航状态机实现
type Fitter interface {
	FitRegion(b geo.Bounds, padding int) bool
}

type Guarantor struct {
	cfg Config
}

func New(cfg Config) *Guarantor {
	if cfg.MinVisible <= 0 {
		cfg.MinVisible = DefaultMinVisible
	}
	if cfg.TooFar <= 0 {
		cfg.TooFar = DefaultTooFar
	}
	if cfg.Padding < 0 {
		cfg.Padding = DefaultPadding
	}
	return &Guarantor{cfg: cfg}
}

func (g *Guarantor) Config() Config { return g.cfg }

// Evaluate 统计受保护集合中落在 visible 内的数量，不足时给出覆盖原点与受保护集合的范围
// 受保护集合 = 按原始距离最近的 m 个 ∪ 排名前 m 位中的优先级候选；无原点时取排名前 m 个
func (g *Guarantor) Evaluate(results []rank.Result, origin *geo.Position, visible geo.Bounds) Decision {
	d := Decision{Closest: math.NaN()}
	if len(results) == 0 {
		return d
	}
	m := g.cfg.MinVisible
	if g.cfg.MaxVisible > 0 && m > g.cfg.MaxVisible {
		m = g.cfg.MaxVisible
	}
	if m > len(results) {
		m = len(results)
	}

	d.Guarded = guarded(results, origin, m)
	points := make([]geo.Position, 0, len(d.Guarded)+1)
	if origin != nil {
		points = append(points, *origin)
	}
	for _, i := range d.Guarded {
		p := results[i].Position
		points = append(points, p)
		if visible.Contains(p) {
			d.Visible++
		}
	}
	if d.Visible < len(d.Guarded) {
		d.Expand = true
		d.Region = geo.BoundsOf(points...)
	}

	if origin != nil && results[0].Ranked {
		d.Closest = closestDistance(results)
		d.FarNotice = !math.IsNaN(d.Closest) && d.Closest > g.cfg.TooFar
	}
	return d
}

// Apply 需要扩展时请求 f 适配范围；返回请求是否被接受
func (g *Guarantor) Apply(d Decision, f Fitter) bool {
	if !d.Expand || d.Region.IsEmpty() {
		return false
	}
	ok := f.FitRegion(d.Region, g.cfg.Padding)
	if ok {
		metrics.ViewportExpansionsTotal.Inc()
	}
	return ok
}

func guarded(results []rank.Result, origin *geo.Position, m int) []int {
	if origin == nil || !results[0].Ranked {
		idx := make([]int, m)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	byDistance := make([]int, 0, len(results))
	for i, r := range results {
		if !math.IsNaN(r.Distance) {
			byDistance = append(byDistance, i)
		}
	}
	sort.SliceStable(byDistance, func(a, b int) bool {
		return results[byDistance[a]].Distance < results[byDistance[b]].Distance
	})
	if len(byDistance) > m {
		byDistance = byDistance[:m]
	}
	seen := make(map[int]bool, m*2)
	out := make([]int, 0, m*2)
	for _, i := range byDistance {
		seen[i] = true
		out = append(out, i)
	}
	for i := 0; i < m; i++ {
		if results[i].Privileged && !seen[i] && results[i].Position.Valid() {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func closestDistance(results []rank.Result) float64 {
	best := math.NaN()
	for _, r := range results {
		if math.IsNaN(r.Distance) {
			continue
		}
		if math.IsNaN(best) || r.Distance < best {
			best = r.Distance
		}
	}
	return best
}
