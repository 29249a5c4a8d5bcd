// 包 rank：按距离与分级加成对候选排序
package rank

import (
	"math"
	"sort"
	"time"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/metrics"
)

// Config 排序参数
// 约束：TierAdvantage 未列出的分级加成为 0；AlwaysShow 中的分级整体排在最前
type Config struct {
	Unit          geo.Unit
	TierAdvantage map[int]float64
	AlwaysShow    map[int]bool
}

// DefaultConfig 英里单位；1→5, 2→10, 3→15, 4→20；仅 1 级为优先级
func DefaultConfig() Config {
	return Config{
		Unit:          geo.Miles,
		TierAdvantage: map[int]float64{1: 5, 2: 10, 3: 15, 4: 20},
		AlwaysShow:    map[int]bool{1: true},
	}
}

// Advantage 分级对应的距离抵扣
func (c Config) Advantage(tier int) float64 {
	if tier == 0 {
		return 0
	}
	return c.TierAdvantage[tier]
}

func (c Config) Privileged(tier int) bool {
	return tier != 0 && c.AlwaysShow[tier]
}

// Result 单次排序的派生记录；Ranked=false 时距离字段无意义
type Result struct {
	candidate.Candidate
	Distance      float64 `json:"distance"`
	WeightedScore float64 `json:"weighted_score"`
	TierAdvantage float64 `json:"tier_advantage"`
	Privileged    bool    `json:"privileged"`
	Ranked        bool    `json:"ranked"`
}

// Rank 生成新的有序结果序列，不修改输入
// 约束：origin 为空时保持输入顺序且不计算距离；NaN 分数在各自分区内排最后
func Rank(cands []candidate.Candidate, origin *geo.Position, cfg Config) []Result {
	t0 := time.Now()
	defer func() {
		metrics.RankDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
		metrics.RankedCandidates.Set(float64(len(cands)))
	}()

	out := make([]Result, len(cands))
	if origin == nil {
		for i, c := range cands {
			out[i] = Result{Candidate: c, Privileged: cfg.Privileged(c.Tier)}
		}
		return out
	}

	privileged := make([]Result, 0, len(cands))
	standard := make([]Result, 0, len(cands))
	for _, c := range cands {
		d := geo.Distance(*origin, c.Position, cfg.Unit)
		adv := cfg.Advantage(c.Tier)
		r := Result{
			Candidate:     c,
			Distance:      d,
			WeightedScore: WeightedScore(d, adv),
			TierAdvantage: adv,
			Privileged:    cfg.Privileged(c.Tier),
			Ranked:        true,
		}
		if r.Privileged {
			privileged = append(privileged, r)
		} else {
			standard = append(standard, r)
		}
	}
	sortByScore(privileged)
	sortByScore(standard)
	n := copy(out, privileged)
	copy(out[n:], standard)
	return out
}

// WeightedScore max(0, d-adv)；d 为 NaN 时返回 NaN
func WeightedScore(d, adv float64) float64 {
	if math.IsNaN(d) {
		return d
	}
	return math.Max(0, d-adv)
}

func sortByScore(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i].WeightedScore, rs[j].WeightedScore
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a < b
	})
}
