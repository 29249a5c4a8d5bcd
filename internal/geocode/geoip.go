package geocode

import (
	"context"
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"

	"locator/internal/failure"
	"locator/internal/geo"
	"locator/internal/logger"
)

var ErrNoClientIP = errors.New("geocode: no client ip")

type clientIPKey struct{}

// WithClientIP 在上下文中携带请求方 IP，供 GeoIP 定位使用
func WithClientIP(ctx context.Context, ip net.IP) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) net.IP {
	ip, _ := ctx.Value(clientIPKey{}).(net.IP)
	return ip
}

// cityReader 便于测试替换 mmdb 读取器
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// GeoIP 以 MaxMind City 库按请求方 IP 近似设备位置
// 约束：精度为城市级；库中无坐标（0,0）视为定位失败
type GeoIP struct {
	reader cityReader
	closer func() error
}

func OpenGeoIP(path string) (*GeoIP, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{reader: r, closer: r.Close}, nil
}

func (g *GeoIP) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func (g *GeoIP) Locate(ctx context.Context) (geo.Position, error) {
	ip := ClientIP(ctx)
	if ip == nil {
		return geo.Position{}, noLocation()
	}
	rec, err := g.reader.City(ip)
	if err != nil {
		return geo.Position{}, failure.New(failure.Location, "geoip.locate", err)
	}
	pos := geo.Position{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}
	if (pos.Lat == 0 && pos.Lng == 0) || !pos.Valid() {
		return geo.Position{}, failure.New(failure.Location, "geoip.locate", errors.New("no coordinates for ip"))
	}
	logger.L().Debug("geoip_locate", "accuracy_km", rec.Location.AccuracyRadius)
	return pos, nil
}

func noLocation() error { return failure.New(failure.Location, "geoip.locate", ErrNoClientIP) }
