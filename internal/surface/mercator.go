// 包 surface：无界面的地图、标记与列表实现，服务端会话与测试共用
package surface

import (
	"math"

	"locator/internal/geo"
)

const (
	tileSize   = 256.0
	maxMercLat = 85.05112878
)

// project Web Mercator 归一化坐标，x/y ∈ [0,1]
func project(p geo.Position) (x, y float64) {
	lat := math.Max(-maxMercLat, math.Min(maxMercLat, p.Lat))
	x = (p.Lng + 180) / 360
	r := lat * math.Pi / 180
	y = (1 - math.Log(math.Tan(r)+1/math.Cos(r))/math.Pi) / 2
	return x, y
}

func unproject(x, y float64) geo.Position {
	lng := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return geo.Position{Lat: lat, Lng: lng}
}

func worldSize(zoom int) float64 { return tileSize * math.Exp2(float64(zoom)) }

// viewBounds 以 center 为中心、width×height 像素的可见范围
func viewBounds(center geo.Position, zoom, width, height int) geo.Bounds {
	ws := worldSize(zoom)
	cx, cy := project(center)
	hw := float64(width) / 2 / ws
	hh := float64(height) / 2 / ws
	nw := unproject(math.Max(0, cx-hw), math.Max(0, cy-hh))
	se := unproject(math.Min(1, cx+hw), math.Min(1, cy+hh))
	return geo.Bounds{MinLat: se.Lat, MinLng: nw.Lng, MaxLat: nw.Lat, MaxLng: se.Lng}
}

// fitZoom 让 b 在留白 padding 后完整落入视口的最大缩放级别
func fitZoom(b geo.Bounds, width, height, padding, minZoom, maxZoom int) int {
	x0, y0 := project(geo.Position{Lat: b.MaxLat, Lng: b.MinLng})
	x1, y1 := project(geo.Position{Lat: b.MinLat, Lng: b.MaxLng})
	w := float64(width - 2*padding)
	h := float64(height - 2*padding)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	for z := maxZoom; z > minZoom; z-- {
		ws := worldSize(z)
		if (x1-x0)*ws <= w && (y1-y0)*ws <= h {
			return z
		}
	}
	return minZoom
}

// regionCenter 投影空间中的中点
func regionCenter(b geo.Bounds) geo.Position {
	x0, y0 := project(geo.Position{Lat: b.MaxLat, Lng: b.MinLng})
	x1, y1 := project(geo.Position{Lat: b.MinLat, Lng: b.MaxLng})
	return unproject((x0+x1)/2, (y0+y1)/2)
}
