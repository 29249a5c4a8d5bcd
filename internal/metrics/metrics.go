package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_requests_total",
		Help: "Total number of session API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "locator_request_duration_ms",
		Help:    "Session API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_cache_hits_total",
		Help: "Total candidate cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_cache_misses_total",
		Help: "Total candidate cache misses, expired entries included",
	})
	CacheErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_cache_errors_total",
		Help: "Total recovered cache failures by operation",
	}, []string{"op"})
	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_source_requests_total",
		Help: "Total candidate source fetches",
	}, []string{"source"})
	SourceFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_source_fail_total",
		Help: "Total candidate source failures",
	}, []string{"source"})
	SourceDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "locator_source_duration_ms",
		Help:    "Candidate source fetch duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"source"})
	BackgroundRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_background_refresh_total",
		Help: "Background cache refreshes by outcome",
	}, []string{"outcome"})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_geocode_requests_total",
		Help: "Total geocoder requests, cache hits excluded",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_geocode_fail_total",
		Help: "Total geocoder failures",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "locator_geocode_duration_ms",
		Help:    "Geocoder call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	})
	RankDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "locator_rank_duration_ms",
		Help:    "Ranking duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100},
	})
	RankedCandidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "locator_ranked_candidates",
		Help: "Number of candidates in the current ranking",
	})
	NavMovesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_nav_moves_dropped_total",
		Help: "Move requests dropped because an animation was in progress",
	})
	NavPanTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_nav_pan_timeouts_total",
		Help: "Pans completed by the fallback timer instead of an idle event",
	})
	ViewportExpansionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_viewport_expansions_total",
		Help: "Viewport expansions requested to keep the nearest candidates visible",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheErrorsTotal)
	prometheus.MustRegister(SourceRequestsTotal)
	prometheus.MustRegister(SourceFailTotal)
	prometheus.MustRegister(SourceDurationMs)
	prometheus.MustRegister(BackgroundRefreshTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(RankDurationMs)
	prometheus.MustRegister(RankedCandidates)
	prometheus.MustRegister(NavMovesDroppedTotal)
	prometheus.MustRegister(NavPanTimeoutsTotal)
	prometheus.MustRegister(ViewportExpansionsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
