package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"locator/internal/failure"
	"locator/internal/geo"
	"locator/internal/logger"
	"locator/internal/metrics"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim OSM 检索接口客户端
// 约束：公共实例要求可识别的 User-Agent；每次只取首条结果
type Nominatim struct {
	BaseURL      string
	CountryCodes string
	UserAgent    string
	Client       *http.Client
}

func NewNominatim(baseURL, countryCodes string, client *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Nominatim{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		CountryCodes: strings.ToLower(countryCodes),
		UserAgent:    "locator/1.0",
		Client:       client,
	}
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	AddressType string `json:"addresstype"`
	Type        string `json:"type"`
}

func (n *Nominatim) Geocode(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, failure.New(failure.Geocode, "nominatim.geocode", ErrNoResults)
	}
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	p, err := n.lookup(ctx, query)
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		logger.L().Warn("geocode_error", "err", err, "duration_ms", dur)
		return Place{}, failure.New(failure.Geocode, "nominatim.geocode", err)
	}
	logger.L().Debug("geocode_resp", "type", p.Type, "duration_ms", dur)
	return p, nil
}

func (n *Nominatim) lookup(ctx context.Context, query string) (Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.CountryCodes != "" {
		q.Set("countrycodes", n.CountryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}
	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Place{}, err
	}
	if len(hits) == 0 {
		return Place{}, ErrNoResults
	}
	h := hits[0]
	lat, err1 := strconv.ParseFloat(h.Lat, 64)
	lng, err2 := strconv.ParseFloat(h.Lon, 64)
	pos := geo.Position{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !pos.Valid() {
		return Place{}, fmt.Errorf("nominatim: invalid coordinates %q,%q", h.Lat, h.Lon)
	}
	kind := h.AddressType
	if kind == "" {
		kind = h.Type
	}
	return Place{Position: pos, Type: placeType(kind), Label: h.DisplayName}, nil
}

// placeType OSM 地址类型归一到缩放表使用的地点类型
func placeType(osm string) string {
	switch osm {
	case "house", "building", "house_number":
		return "street_address"
	case "road", "street":
		return "route"
	case "city", "town", "village", "hamlet", "suburb", "neighbourhood", "quarter":
		return "locality"
	case "postcode":
		return "postal_code"
	case "state", "region", "province":
		return "administrative_area_level_1"
	case "country":
		return "country"
	}
	return osm
}
