// 包 geocode：检索词与设备位置解析为坐标
package geocode

import (
	"context"
	"errors"
	"strings"

	"locator/internal/geo"
)

var ErrNoResults = errors.New("geocode: no results")

// Place 解析结果；Type 为地点类型提示，用于选择初始缩放级别
type Place struct {
	Position geo.Position `json:"position"`
	Type     string       `json:"type"`
	Label    string       `json:"label"`
}

// Geocoder 检索词解析；失败返回 failure.Geocode 类错误
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// Locator 设备位置；失败返回 failure.Location 类错误
type Locator interface {
	Locate(ctx context.Context) (geo.Position, error)
}

type GeocoderFunc func(ctx context.Context, query string) (Place, error)

func (f GeocoderFunc) Geocode(ctx context.Context, query string) (Place, error) { return f(ctx, query) }

type LocatorFunc func(ctx context.Context) (geo.Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (geo.Position, error) { return f(ctx) }

// ZoomTable 地点类型到初始缩放级别；"default" 为兜底
type ZoomTable map[string]int

func DefaultZoomTable() ZoomTable {
	return ZoomTable{
		"street_address":              16,
		"route":                       15,
		"locality":                    12,
		"postal_code":                 13,
		"administrative_area_level_1": 8,
		"country":                     5,
		"default":                     13,
	}
}

// ZoomFor 未知类型回退到 default，再回退到 13
func (t ZoomTable) ZoomFor(placeType string) int {
	if z, ok := t[strings.ToLower(strings.TrimSpace(placeType))]; ok {
		return z
	}
	if z, ok := t["default"]; ok {
		return z
	}
	return 13
}
