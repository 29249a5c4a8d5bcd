package history

import (
	"context"
	"errors"
	"strconv"

	"locator/internal/geo"
	"locator/internal/kv"
)

const (
	OriginLatKey = "retailer_finder_lat"
	OriginLngKey = "retailer_finder_lng"
	MapLatKey    = "retailer_finder_map_lat"
	MapLngKey    = "retailer_finder_map_lng"
	MapZoomKey   = "retailer_finder_map_zoom"
)

// MapState 上次地图中心与缩放
type MapState struct {
	Center geo.Position `json:"center"`
	Zoom   int          `json:"zoom"`
}

// State 原点与地图状态；每个数值单独一个键
type State struct {
	store kv.Store
}

func NewState(store kv.Store) *State { return &State{store: store} }

func (s *State) SaveOrigin(ctx context.Context, p geo.Position) error {
	return errors.Join(
		s.store.Set(ctx, OriginLatKey, formatFloat(p.Lat)),
		s.store.Set(ctx, OriginLngKey, formatFloat(p.Lng)),
	)
}

// Origin 上次解析成功的原点；缺失或非法时 ok=false
func (s *State) Origin(ctx context.Context) (geo.Position, bool, error) {
	lat, okLat, err := s.float(ctx, OriginLatKey)
	if err != nil {
		return geo.Position{}, false, err
	}
	lng, okLng, err := s.float(ctx, OriginLngKey)
	if err != nil {
		return geo.Position{}, false, err
	}
	p := geo.Position{Lat: lat, Lng: lng}
	if !okLat || !okLng || !p.Valid() {
		return geo.Position{}, false, nil
	}
	return p, true, nil
}

func (s *State) SaveMap(ctx context.Context, m MapState) error {
	return errors.Join(
		s.store.Set(ctx, MapLatKey, formatFloat(m.Center.Lat)),
		s.store.Set(ctx, MapLngKey, formatFloat(m.Center.Lng)),
		s.store.Set(ctx, MapZoomKey, strconv.Itoa(m.Zoom)),
	)
}

func (s *State) Map(ctx context.Context) (MapState, bool, error) {
	lat, okLat, err := s.float(ctx, MapLatKey)
	if err != nil {
		return MapState{}, false, err
	}
	lng, okLng, err := s.float(ctx, MapLngKey)
	if err != nil {
		return MapState{}, false, err
	}
	zoom, okZoom, err := s.float(ctx, MapZoomKey)
	if err != nil {
		return MapState{}, false, err
	}
	m := MapState{Center: geo.Position{Lat: lat, Lng: lng}, Zoom: int(zoom)}
	if !okLat || !okLng || !okZoom || !m.Center.Valid() {
		return MapState{}, false, nil
	}
	return m, true, nil
}

func (s *State) float(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return 0, false, nil
	}
	return v, true, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
