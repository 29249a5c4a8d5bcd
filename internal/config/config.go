// 包 config：进程配置读取
// 背景：基础设施参数来自环境变量（.env 由入口加载）；引擎参数可由 YAML 设置文件整体覆盖，环境变量优先级最高。
// 约束：数值解析失败时静默回退默认值，与历史行为保持一致。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"locator/internal/geo"
	"locator/internal/session"
)

// Config 进程级配置
type Config struct {
	Addr    string
	APIBase string

	// Source 候选来源：http | postgres | elastic | overpass
	Source       string
	APIURL       string
	PostgresDSN  string
	PGMaxOpen    int
	PGMaxIdle    int
	ESURL        string
	ESIndex      string
	OverpassURL  string
	OverpassBBox string
	OverpassShop string

	// KVBackend 持久化存储：file | redis | memory
	KVBackend   string
	KVDir       string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	RedisPrefix string

	GeoIPPath        string
	NominatimURL     string
	CountryCodes     string
	GeocodeCacheSize int
	GeocodeCacheTTL  time.Duration
	HTTPTimeout      time.Duration

	RateLimitQPS int

	CacheExpiry time.Duration
	Session     session.Config
}

// Settings 设置文件结构；未出现的字段保持默认
type Settings struct {
	DistanceUnit       string          `yaml:"distance_unit"`
	TierAdvantage      map[int]float64 `yaml:"tier_advantage"`
	AlwaysShow         []int           `yaml:"always_show"`
	MinVisible         int             `yaml:"min_visible"`
	MaxVisible         int             `yaml:"max_visible"`
	TooFar             float64         `yaml:"too_far"`
	InitialBatch       int             `yaml:"initial_batch"`
	IncrementBatch     int             `yaml:"increment_batch"`
	MaxMarkers         int             `yaml:"max_markers"`
	PanMs              int             `yaml:"pan_ms"`
	ZoomMs             int             `yaml:"zoom_ms"`
	DebounceMs         int             `yaml:"debounce_ms"`
	CacheExpiryMinutes int             `yaml:"cache_expiry_minutes"`
	DefaultLat         *float64        `yaml:"default_lat"`
	DefaultLng         *float64        `yaml:"default_lng"`
	DefaultZoom        int             `yaml:"default_zoom"`
	ZoomByPlaceType    map[string]int  `yaml:"zoom_by_place_type"`
	CountryCode        string          `yaml:"country_code"`
	Texts              session.Texts   `yaml:"texts"`
}

// Load 读取环境变量与可选的设置文件（LOCATOR_SETTINGS_FILE）
func Load() (Config, error) {
	c := Config{
		Addr:             env("ADDR", ":8080"),
		APIBase:          env("API_BASE", "/api"),
		Source:           strings.ToLower(env("LOCATOR_SOURCE", "http")),
		APIURL:           env("API_URL", "http://localhost:8000/admin/api/retailers"),
		PostgresDSN:      BuildPostgresDSN(),
		PGMaxOpen:        envInt("PG_MAX_OPEN_CONNS", 10),
		PGMaxIdle:        envInt("PG_MAX_IDLE_CONNS", 5),
		ESURL:            env("ES_URL", "http://localhost:9200"),
		ESIndex:          env("ES_INDEX", "retailers"),
		OverpassURL:      env("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassBBox:     env("OVERPASS_BBOX", "51.1,-0.9,51.5,-0.3"),
		OverpassShop:     env("OVERPASS_SHOP", "bicycle"),
		KVBackend:        strings.ToLower(env("KV_BACKEND", "file")),
		KVDir:            env("KV_DIR", filepath.Join("data", "kv")),
		RedisAddr:        redisAddr(),
		RedisPass:        os.Getenv("REDIS_PASS"),
		RedisDB:          envInt("REDIS_DB", 0),
		RedisPrefix:      env("REDIS_PREFIX", "locator:"),
		GeoIPPath:        os.Getenv("GEOIP_DB_PATH"),
		NominatimURL:     env("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		CountryCodes:     "gb",
		GeocodeCacheSize: envInt("GEOCODE_CACHE_SIZE", 1024),
		GeocodeCacheTTL:  time.Duration(envInt("GEOCODE_CACHE_TTL_MIN", 60)) * time.Minute,
		HTTPTimeout:      time.Duration(envInt("HTTP_TIMEOUT_MS", 5000)) * time.Millisecond,
		CacheExpiry:      time.Hour,
		Session:          session.DefaultConfig(),
	}
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		c.RateLimitQPS = envInt("RATE_LIMIT_QPS", 200)
	}

	var st Settings
	if path := os.Getenv("LOCATOR_SETTINGS_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: read settings: %w", err)
		}
		st, err = ParseSettings(b)
		if err != nil {
			return c, err
		}
	}
	st.overlayEnv()
	c.apply(st)
	return c, nil
}

// ParseSettings 解析 YAML 设置文件
func ParseSettings(b []byte) (Settings, error) {
	var st Settings
	if err := yaml.Unmarshal(b, &st); err != nil {
		return Settings{}, fmt.Errorf("config: parse settings: %w", err)
	}
	return st, nil
}

// overlayEnv 环境变量覆盖设置文件
func (st *Settings) overlayEnv() {
	if v := os.Getenv("LOCATOR_DISTANCE_UNIT"); v != "" {
		st.DistanceUnit = v
	}
	if v := os.Getenv("LOCATOR_TIER_ADVANTAGE"); v != "" {
		if m, ok := ParseTierAdvantage(v); ok {
			st.TierAdvantage = m
		}
	}
	if v := os.Getenv("LOCATOR_ALWAYS_SHOW"); v != "" {
		if tiers, ok := ParseTiers(v); ok {
			st.AlwaysShow = tiers
		}
	}
	st.MinVisible = envInt("LOCATOR_MIN_VISIBLE", st.MinVisible)
	st.MaxVisible = envInt("LOCATOR_MAX_VISIBLE", st.MaxVisible)
	st.TooFar = envFloat("LOCATOR_TOO_FAR", st.TooFar)
	st.InitialBatch = envInt("LOCATOR_INITIAL_BATCH", st.InitialBatch)
	st.IncrementBatch = envInt("LOCATOR_INCREMENT_BATCH", st.IncrementBatch)
	st.MaxMarkers = envInt("LOCATOR_MAX_MARKERS", st.MaxMarkers)
	st.PanMs = envInt("LOCATOR_PAN_MS", st.PanMs)
	st.ZoomMs = envInt("LOCATOR_ZOOM_MS", st.ZoomMs)
	st.DebounceMs = envInt("LOCATOR_DEBOUNCE_MS", st.DebounceMs)
	st.CacheExpiryMinutes = envInt("LOCATOR_CACHE_EXPIRY_MIN", st.CacheExpiryMinutes)
	if v := os.Getenv("LOCATOR_COUNTRY_CODE"); v != "" {
		st.CountryCode = v
	}
}

// apply 只覆盖设置中出现的字段
func (c *Config) apply(st Settings) {
	sc := &c.Session
	if st.DistanceUnit != "" {
		sc.Rank.Unit = geo.ParseUnit(st.DistanceUnit)
		sc.Nav.Unit = sc.Rank.Unit
	}
	if len(st.TierAdvantage) > 0 {
		sc.Rank.TierAdvantage = st.TierAdvantage
	}
	if len(st.AlwaysShow) > 0 {
		sc.Rank.AlwaysShow = make(map[int]bool, len(st.AlwaysShow))
		for _, t := range st.AlwaysShow {
			sc.Rank.AlwaysShow[t] = true
		}
	}
	if st.MinVisible > 0 {
		sc.Viewport.MinVisible = st.MinVisible
	}
	if st.MaxVisible > 0 {
		sc.Viewport.MaxVisible = st.MaxVisible
	}
	if st.TooFar > 0 {
		sc.Viewport.TooFar = st.TooFar
	}
	if st.InitialBatch > 0 {
		sc.InitialBatch = st.InitialBatch
	}
	if st.IncrementBatch > 0 {
		sc.IncrementBatch = st.IncrementBatch
	}
	if st.MaxMarkers > 0 {
		sc.MaxMarkers = st.MaxMarkers
	}
	if st.PanMs > 0 {
		sc.Nav.PanDuration = time.Duration(st.PanMs) * time.Millisecond
	}
	if st.ZoomMs > 0 {
		sc.Nav.ZoomDuration = time.Duration(st.ZoomMs) * time.Millisecond
	}
	if st.DebounceMs > 0 {
		sc.Nav.Debounce = time.Duration(st.DebounceMs) * time.Millisecond
	}
	if st.CacheExpiryMinutes > 0 {
		c.CacheExpiry = time.Duration(st.CacheExpiryMinutes) * time.Minute
	}
	if st.DefaultLat != nil && st.DefaultLng != nil {
		if p := (geo.Position{Lat: *st.DefaultLat, Lng: *st.DefaultLng}); p.Valid() {
			sc.DefaultOrigin = p
		}
	}
	if st.DefaultZoom > 0 {
		sc.DefaultZoom = st.DefaultZoom
	}
	for k, v := range st.ZoomByPlaceType {
		if v > 0 {
			sc.ZoomTable[strings.ToLower(k)] = v
		}
	}
	if st.CountryCode != "" {
		c.CountryCodes = strings.ToLower(st.CountryCode)
	}
	if st.Texts != (session.Texts{}) {
		sc.Texts = st.Texts.Merge(sc.Texts)
	}
}
