// 包 api：会话 HTTP 接口；所有会话操作都经由事件循环串行执行
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"locator/internal/geo"
	"locator/internal/highlight"
	"locator/internal/logger"
	"locator/internal/loop"
	"locator/internal/metrics"
	"locator/internal/middleware"
	"locator/internal/render"
	"locator/internal/session"
)

// Gestures 用户地图手势入口，由无界面地图实现
type Gestures interface {
	Drag(to geo.Position)
	UserZoom(level int)
}

type server struct {
	sess    *session.Session
	caller  loop.Caller
	gesture Gestures
	log     *slog.Logger
}

var errBadRequest = errors.New("bad request")

// BuildRoutes 构建会话路由；在主入口挂载到 API_BASE 前缀下
func BuildRoutes(sess *session.Session, caller loop.Caller, gestures Gestures) http.Handler {
	s := &server{sess: sess, caller: caller, gesture: gestures, log: logger.Component("api")}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientContext)

	r.Get("/state", s.handle("state", func(*http.Request) error { return nil }))
	r.Post("/search", s.handle("search", s.search))
	r.Post("/origin", s.handle("origin", s.origin))
	r.Post("/locate", s.handle("locate", func(req *http.Request) error {
		s.sess.UseMyLocation(req.Context())
		return nil
	}))
	r.Post("/more", s.handle("more", func(*http.Request) error {
		s.sess.LoadMore()
		return nil
	}))
	r.Post("/activate", s.handle("activate", s.activate))
	r.Delete("/activate", s.handle("deactivate", func(*http.Request) error {
		s.sess.ClearActive()
		return nil
	}))
	r.Post("/search-area", s.handle("search_area", func(*http.Request) error {
		s.sess.SearchThisArea()
		return nil
	}))
	r.Post("/recent/{index}", s.handle("recent", s.recent))
	r.Post("/reload", s.handle("reload", func(*http.Request) error {
		s.sess.Reload()
		return nil
	}))
	r.Post("/map/drag", s.handle("map_drag", s.drag))
	r.Post("/map/zoom", s.handle("map_zoom", s.zoom))
	return r
}

// handle 在事件循环上执行 fn 并返回执行后的会话快照
func (s *server) handle(route string, fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		defer func() {
			metrics.RequestDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
		}()

		var (
			opErr error
			snap  session.Snapshot
		)
		err := s.caller.Call(r.Context(), func() {
			if opErr = fn(r); opErr == nil {
				snap = s.sess.Snapshot()
			}
		})
		if err != nil {
			s.log.Error("loop_call_error", "route", route, "err", err)
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		if opErr != nil {
			s.log.Debug("request_rejected", "route", route, "err", opErr)
			writeError(w, statusOf(opErr), opErr)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *server) search(r *http.Request) error {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return errBadRequest
	}
	s.sess.Search(q)
	return nil
}

func (s *server) origin(r *http.Request) error {
	p, err := position(r)
	if err != nil {
		return err
	}
	return s.sess.SetOrigin(p)
}

func (s *server) activate(r *http.Request) error {
	q := r.URL.Query()
	if id := strings.TrimSpace(q.Get("id")); id != "" {
		return s.sess.ActivateID(id)
	}
	i, err := strconv.Atoi(q.Get("index"))
	if err != nil {
		return errBadRequest
	}
	return s.sess.Activate(i)
}

func (s *server) recent(r *http.Request) error {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return errBadRequest
	}
	_, ok, err := s.sess.SelectRecent(i)
	if err != nil {
		return err
	}
	if !ok {
		return render.ErrIndexOutOfRange
	}
	return nil
}

func (s *server) drag(r *http.Request) error {
	p, err := position(r)
	if err != nil {
		return err
	}
	s.gesture.Drag(p)
	return nil
}

func (s *server) zoom(r *http.Request) error {
	level, err := strconv.Atoi(r.URL.Query().Get("level"))
	if err != nil {
		return errBadRequest
	}
	s.gesture.UserZoom(level)
	return nil
}

func position(r *http.Request) (geo.Position, error) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		return geo.Position{}, errBadRequest
	}
	p := geo.Position{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Position{}, session.ErrInvalidOrigin
	}
	return p, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, render.ErrIndexOutOfRange), errors.Is(err, highlight.ErrUnknownID):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, session.ErrInvalidOrigin):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
