// 程序入口：读取配置、装配候选来源与持久化存储、启动会话事件循环与 HTTP 服务
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"locator/internal/api"
	"locator/internal/cache"
	"locator/internal/config"
	"locator/internal/geocode"
	"locator/internal/history"
	"locator/internal/kv"
	"locator/internal/loader"
	"locator/internal/logger"
	"locator/internal/loop"
	"locator/internal/metrics"
	"locator/internal/middleware"
	"locator/internal/migrate"
	"locator/internal/session"
	"locator/internal/source"
	"locator/internal/surface"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		l.Error("kv_open_error", "backend", cfg.KVBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	src, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		l.Error("source_open_error", "source", cfg.Source, "err", err)
		os.Exit(1)
	}
	defer closeSource()
	l.Info("source_ready", "source", cfg.Source)

	ld := loader.New(cache.New(store, cfg.CacheExpiry), src)
	defer ld.Close()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	geocoder := geocode.NewCached(
		geocode.NewNominatim(cfg.NominatimURL, cfg.CountryCodes, httpClient),
		geocode.NewLRU(cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL),
	)
	// 背景：未配置 GeoIP 库时仅接受边缘节点提供的坐标提示
	var fallback geocode.Locator
	if cfg.GeoIPPath != "" {
		if g, err := geocode.OpenGeoIP(cfg.GeoIPPath); err == nil {
			defer g.Close()
			fallback = g
			l.Info("geoip_ready", "path", cfg.GeoIPPath)
		} else {
			l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
		}
	}

	recent := history.NewRecent(store, time.Now)
	state := history.NewState(store)

	center, zoom := cfg.Session.DefaultOrigin, cfg.Session.DefaultZoom
	if ms, ok, err := state.Map(ctx); err == nil && ok {
		center, zoom = ms.Center, ms.Zoom
		l.Debug("map_state_restored", "lat", center.Lat, "lng", center.Lng, "zoom", zoom)
	}

	lp := loop.NewReal()
	m := surface.NewMap(lp, surface.DefaultMapConfig(), center, zoom)
	sess := session.New(cfg.Session, session.Deps{
		Loop:     lp,
		Loader:   ld,
		Geocoder: geocoder,
		Locator:  geocode.NewHinted(fallback),
		Recent:   recent,
		State:    state,
		Surface:  m,
		Markers:  surface.NewMarkers(),
		List:     surface.NewList(cfg.Session.InitialBatch),
	})
	defer sess.Close()
	m.Bind(sess)
	lp.Post(sess.Start)
	l.Info("session_ready", "id", sess.ID())

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		lp.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, api.BuildRoutes(sess, lp, m)))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.RateLimit(cfg.RateLimitQPS)(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()
	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
	}
	stop()
	<-loopDone
	l.Info("shutdown_ok")
}

// openStore 按 KV_BACKEND 打开持久化存储；redis 未配置地址时回退到文件存储
func openStore(ctx context.Context, cfg config.Config) (kv.Store, func(), error) {
	l := logger.L()
	nop := func() {}
	switch cfg.KVBackend {
	case "memory":
		l.Info("kv_backend", "backend", "memory")
		return kv.NewMemory(), nop, nil
	case "redis":
		rc := kv.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if rc == nil {
			l.Info("redis_disabled", "fallback", "file")
			break
		}
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		return kv.NewRedis(rc, cfg.RedisPrefix), func() { _ = rc.Close() }, nil
	}
	fs, err := kv.OpenFile(cfg.KVDir)
	if err != nil {
		return nil, nop, err
	}
	l.Info("kv_backend", "backend", "file", "dir", cfg.KVDir)
	return fs, nop, nil
}

// openSource 按 LOCATOR_SOURCE 构建候选来源
func openSource(ctx context.Context, cfg config.Config) (source.Source, func(), error) {
	l := logger.L()
	nop := func() {}
	switch cfg.Source {
	case "postgres":
		db, err := source.OpenPostgres(cfg.PostgresDSN, cfg.PGMaxOpen, cfg.PGMaxIdle)
		if err != nil {
			return nil, nop, err
		}
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nop, err
		}
		return source.NewPostgres(db), func() { _ = db.Close() }, nil
	case "elastic":
		es, err := source.OpenElastic(cfg.ESURL)
		if err != nil {
			return nil, nop, err
		}
		return source.NewElastic(es, cfg.ESIndex, 0), es.Stop, nil
	case "overpass":
		return source.NewOverpass(cfg.OverpassURL, cfg.OverpassBBox, cfg.OverpassShop, cfg.HTTPTimeout*6), nop, nil
	}
	return source.NewHTTP(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout}), nop, nil
}
