package rank

import (
	"fmt"
	"math"

	"locator/internal/geo"
)

// FormatDistance "%.1f miles away" / "%.1f km away"
func FormatDistance(d float64, u geo.Unit) string {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return ""
	}
	return fmt.Sprintf("%.1f %s away", d, u.Label())
}

// DistanceLabel 未排序结果不展示距离
func (r Result) DistanceLabel(u geo.Unit) string {
	if !r.Ranked {
		return ""
	}
	return FormatDistance(r.Distance, u)
}

// IDs 结果编号序列，便于日志与测试
func IDs(rs []Result) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}
