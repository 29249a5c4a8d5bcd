package session

import (
	"locator/internal/geo"
	"locator/internal/geocode"
	"locator/internal/highlight"
	"locator/internal/nav"
	"locator/internal/rank"
	"locator/internal/render"
	"locator/internal/viewport"
)

// Texts 面向用户的提示文字
type Texts struct {
	Loading                 string `yaml:"loading" json:"loading"`
	NoResults               string `yaml:"no_results" json:"no_results"`
	ErrorLoading            string `yaml:"error_loading" json:"error_loading"`
	LocationError           string `yaml:"location_error" json:"location_error"`
	GeolocationNotSupported string `yaml:"geolocation_not_supported" json:"geolocation_not_supported"`
	LocationNotFound        string `yaml:"location_not_found" json:"location_not_found"`
	SearchingLocation       string `yaml:"searching_location" json:"searching_location"`
	GettingLocation         string `yaml:"getting_location" json:"getting_location"`
	FarNotice               string `yaml:"far_notice" json:"far_notice"`
}

func DefaultTexts() Texts {
	return Texts{
		Loading:                 "Loading retailers...",
		NoResults:               "No retailers found in this area.",
		ErrorLoading:            "Error loading retailers. Please try again.",
		LocationError:           "Unable to get your location. Please enter a location manually.",
		GeolocationNotSupported: "Geolocation is not supported by your browser. Please enter a location manually.",
		LocationNotFound:        "Location not found. Please try a different search.",
		SearchingLocation:       "Searching for location...",
		GettingLocation:         "Getting your location...",
		FarNotice:               "No retailers nearby. Showing the closest results.",
	}
}

// Merge 空字段使用 def 中的值
func (t Texts) Merge(def Texts) Texts {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Texts{
		Loading:                 pick(t.Loading, def.Loading),
		NoResults:               pick(t.NoResults, def.NoResults),
		ErrorLoading:            pick(t.ErrorLoading, def.ErrorLoading),
		LocationError:           pick(t.LocationError, def.LocationError),
		GeolocationNotSupported: pick(t.GeolocationNotSupported, def.GeolocationNotSupported),
		LocationNotFound:        pick(t.LocationNotFound, def.LocationNotFound),
		SearchingLocation:       pick(t.SearchingLocation, def.SearchingLocation),
		GettingLocation:         pick(t.GettingLocation, def.GettingLocation),
		FarNotice:               pick(t.FarNotice, def.FarNotice),
	}
}

// Config 会话参数；零值字段在 New 中补默认值
type Config struct {
	Rank           rank.Config
	Nav            nav.Config
	Viewport       viewport.Config
	InitialBatch   int
	IncrementBatch int
	// MaxMarkers 大于 0 时只为排名前 MaxMarkers 的结果放置标记
	MaxMarkers    int
	DetailZoom    int
	DefaultOrigin geo.Position
	DefaultZoom   int
	ZoomTable     geocode.ZoomTable
	Texts         Texts
}

func DefaultConfig() Config {
	return Config{
		Rank:           rank.DefaultConfig(),
		Nav:            nav.DefaultConfig(),
		Viewport:       viewport.DefaultConfig(),
		InitialBatch:   render.DefaultInitialBatch,
		IncrementBatch: render.DefaultIncrementBatch,
		MaxMarkers:     500,
		DetailZoom:     highlight.DefaultDetailZoom,
		DefaultOrigin:  geo.Position{Lat: 51.32946017198823, Lng: -0.590516176321099},
		DefaultZoom:    10,
		ZoomTable:      geocode.DefaultZoomTable(),
		Texts:          DefaultTexts(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Rank.TierAdvantage == nil {
		c.Rank.TierAdvantage = def.Rank.TierAdvantage
	}
	if c.Rank.AlwaysShow == nil {
		c.Rank.AlwaysShow = def.Rank.AlwaysShow
	}
	if c.Rank.Unit == "" {
		c.Rank.Unit = def.Rank.Unit
	}
	if c.Nav.Unit == "" {
		c.Nav.Unit = c.Rank.Unit
	}
	if c.Viewport == (viewport.Config{}) {
		c.Viewport = def.Viewport
	}
	if c.DetailZoom <= 0 {
		c.DetailZoom = def.DetailZoom
	}
	if !c.DefaultOrigin.Valid() || c.DefaultOrigin == (geo.Position{}) {
		c.DefaultOrigin = def.DefaultOrigin
	}
	if c.DefaultZoom <= 0 {
		c.DefaultZoom = def.DefaultZoom
	}
	if len(c.ZoomTable) == 0 {
		c.ZoomTable = def.ZoomTable
	}
	c.Texts = c.Texts.Merge(def.Texts)
	return c
}
