package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"locator/internal/geo"
	"locator/internal/geocode"
	"locator/internal/logger"
)

// 文档注释：请求方信息注入
// 背景：设备定位在服务端以请求方 IP 近似；边缘节点（EdgeOne）改写的坐标头优先作为定位线索。
// 约束：解析失败不阻断请求；头部可能被伪造，部署时需由网关过滤。
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ip := net.ParseIP(ClientIP(r)); ip != nil {
			ctx = geocode.WithClientIP(ctx, ip)
		}
		if p, ok := edgeGeo(r); ok {
			ctx = geocode.WithHint(ctx, p)
			logger.L().Debug("edge_geo_inject", "lat", p.Lat, "lng", p.Lng)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP 优先常见反向代理头，最后回退远端地址
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip", "x-edge-client-ip", "x-eo-client-ip"} {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(x)
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"[]")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func edgeGeo(r *http.Request) (geo.Position, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(r.Header.Get("X-EO-Geo-Latitude")), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(r.Header.Get("X-EO-Geo-Longitude")), 64)
	if err1 != nil || err2 != nil {
		return geo.Position{}, false
	}
	p := geo.Position{Lat: lat, Lng: lng}
	return p, p.Valid()
}
