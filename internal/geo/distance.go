// 包 geo：球面距离与矩形范围的最小几何工具
package geo

import (
	"math"
	"strings"
)

// Position 经纬度坐标（WGS84，单位度）
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid 坐标有限且处于合法范围
func (p Position) Valid() bool {
	if !finite(p.Lat) || !finite(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Unit 距离单位
type Unit string

const (
	Miles      Unit = "miles"
	Kilometers Unit = "kilometers"
)

const (
	earthRadiusMiles = 3958.8
	// 与英里换算系数保持一致，两种单位下排序结果相同
	milesToKm = 1.60934
)

// ParseUnit 解析配置中的单位；无法识别时回退为英里
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kilometers", "kilometres", "km":
		return Kilometers
	}
	return Miles
}

// Radius 对应单位的地球半径
func (u Unit) Radius() float64 {
	if u == Kilometers {
		return earthRadiusMiles * milesToKm
	}
	return earthRadiusMiles
}

// Label 展示用单位文字
func (u Unit) Label() string {
	if u == Kilometers {
		return "km"
	}
	return "miles"
}

// Distance 球面距离（Haversine）
// 约束：任一坐标非有限值时返回 NaN，不 panic；调用方负责向下游传播
func Distance(a, b Position, u Unit) float64 {
	if !finite(a.Lat) || !finite(a.Lng) || !finite(b.Lat) || !finite(b.Lng) {
		return math.NaN()
	}
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return u.Radius() * c
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
