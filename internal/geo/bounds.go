package geo

import "math"

// Bounds 矩形地理范围
// 约束：不处理跨 180° 经线的范围；空范围以 Min > Max 表示
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// EmptyBounds 不包含任何点的范围，Extend 的起点
func EmptyBounds() Bounds {
	return Bounds{MinLat: math.Inf(1), MinLng: math.Inf(1), MaxLat: math.Inf(-1), MaxLng: math.Inf(-1)}
}

// BoundsOf 覆盖全部有效点的最小范围；非法坐标被忽略
func BoundsOf(ps ...Position) Bounds {
	b := EmptyBounds()
	for _, p := range ps {
		b = b.Extend(p)
	}
	return b
}

func (b Bounds) IsEmpty() bool { return b.MinLat > b.MaxLat || b.MinLng > b.MaxLng }

// Extend 扩展至包含 p
func (b Bounds) Extend(p Position) Bounds {
	if !p.Valid() {
		return b
	}
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MinLng = math.Min(b.MinLng, p.Lng)
	b.MaxLng = math.Max(b.MaxLng, p.Lng)
	return b
}

// Contains 闭区间包含判定
func (b Bounds) Contains(p Position) bool {
	if b.IsEmpty() || !p.Valid() {
		return false
	}
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

func (b Bounds) Center() Position {
	return Position{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}

// Valid 非空且四个边界均为有限合法值
func (b Bounds) Valid() bool {
	if b.IsEmpty() {
		return false
	}
	return Position{Lat: b.MinLat, Lng: b.MinLng}.Valid() && Position{Lat: b.MaxLat, Lng: b.MaxLng}.Valid()
}

// Pad 按跨度比例向四周扩展；纬度截断在 ±90，经度截断在 ±180
func (b Bounds) Pad(ratio float64) Bounds {
	if !b.Valid() || ratio <= 0 {
		return b
	}
	dLat := (b.MaxLat - b.MinLat) * ratio
	dLng := (b.MaxLng - b.MinLng) * ratio
	return Bounds{
		MinLat: math.Max(-90, b.MinLat-dLat),
		MinLng: math.Max(-180, b.MinLng-dLng),
		MaxLat: math.Min(90, b.MaxLat+dLat),
		MaxLng: math.Min(180, b.MaxLng+dLng),
	}
}
