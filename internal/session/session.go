// 包 session：单个交互会话的状态与流程编排
// 背景：原点、候选集、排序结果与地图/列表展示的唯一持有者；所有方法都必须在事件循环上调用。
// 约束：异步任务（加载、地理编码、定位）通过 loop.Go 执行，完成后 Post 回循环并按代次丢弃过期结果。
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"locator/internal/candidate"
	"locator/internal/failure"
	"locator/internal/geo"
	"locator/internal/geocode"
	"locator/internal/highlight"
	"locator/internal/history"
	"locator/internal/logger"
	"locator/internal/loop"
	"locator/internal/nav"
	"locator/internal/rank"
	"locator/internal/render"
	"locator/internal/viewport"
)

var ErrInvalidOrigin = errors.New("session: invalid origin")

// CandidateLoader 候选集加载方，由 loader.Loader 实现
type CandidateLoader interface {
	Load(ctx context.Context) ([]candidate.Candidate, error)
}

// Markers 地图标记集合
type Markers interface {
	Replace(results []rank.Result)
	Highlight(id string, active bool)
}

// List 结果列表展示面
type List interface {
	highlight.ListView
	Reset()
}

// Deps 会话的外部协作方；Locator 为空表示设备定位不可用
type Deps struct {
	Loop     loop.Loop
	Loader   CandidateLoader
	Geocoder geocode.Geocoder
	Locator  geocode.Locator
	Recent   *history.Recent
	State    *history.State
	Surface  nav.Surface
	Markers  Markers
	List     List
}

// Session 一个交互会话
type Session struct {
	id   string
	cfg  Config
	deps Deps
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	anim      *nav.Animator
	renderer  *render.Renderer
	guarantor *viewport.Guarantor
	coord     *highlight.Coordinator

	cands   []candidate.Candidate
	loaded  bool
	loading bool
	origin  *geo.Position
	results []rank.Result

	// loadGen 标记加载周期；searchGen 标记地理编码与定位请求
	loadGen   uint64
	searchGen uint64

	// pendingZoom 原点变化后首次居中的目标缩放
	pendingZoom int
	// pendingGuarantee 程序移动停稳后执行一次可见性保证
	pendingGuarantee bool

	status    Status
	farNotice bool
}

func New(cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:          uuid.New().String(),
		cfg:         cfg,
		deps:        deps,
		ctx:         ctx,
		cancel:      cancel,
		renderer:    render.New(cfg.InitialBatch, cfg.IncrementBatch),
		guarantor:   viewport.New(cfg.Viewport),
		pendingZoom: nav.NoZoom,
		status:      Status{Phase: PhaseIdle},
	}
	s.log = logger.Component("session").With("session", s.id)
	s.anim = nav.New(deps.Loop, deps.Surface, cfg.Nav)
	s.anim.OnSettled = s.settled
	s.anim.OnAffordance = func(visible bool) {
		s.log.Debug("search_area_affordance", "visible", visible)
	}
	s.coord = highlight.New(s.renderer, deps.List, deps.Markers, s.anim, highlight.Config{
		DetailZoom:    cfg.DetailZoom,
		ScrollPadding: highlight.DefaultScrollPadding,
	})
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Config() Config { return s.cfg }

// Animator 导航状态机；只读访问
func (s *Session) Animator() *nav.Animator { return s.anim }

// Close 取消进行中的异步任务
func (s *Session) Close() { s.cancel() }

// HandleIdle 地图停稳事件
func (s *Session) HandleIdle() { s.anim.HandleIdle() }

// HandleDragStart 用户拖动取消尚未执行的可见性保证
func (s *Session) HandleDragStart() {
	s.anim.HandleDragStart()
	s.userGesture()
}

func (s *Session) HandleZoomChanged(level int) {
	s.anim.HandleZoomChanged(level)
	s.userGesture()
}

func (s *Session) userGesture() {
	if s.anim.State() == nav.SettlingForSearchArea && s.pendingGuarantee {
		s.pendingGuarantee = false
		s.log.Debug("viewport_guarantee_cancelled", "reason", "user_gesture")
	}
}

// Start 会话初始化：优先使用上次保存的原点，其次静默定位，最后退化为不排序的列表
func (s *Session) Start() {
	if s.deps.State != nil {
		p, ok, err := s.deps.State.Origin(s.ctx)
		if err != nil {
			s.log.Debug("saved_origin_read_error", "err", err)
		}
		if ok && p.Valid() {
			s.log.Info("session_start", "origin", "saved")
			s.applyOrigin(p, s.cfg.DefaultZoom)
			return
		}
	}
	if s.deps.Locator == nil {
		s.log.Info("session_start", "origin", "none")
		s.load()
		return
	}
	s.log.Info("session_start", "origin", "locate")
	s.locate(s.ctx, true)
}

// Search 地理编码查询文本并以结果为新原点；失败时保留当前结果
func (s *Session) Search(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if s.deps.Geocoder == nil {
		s.setStatus(PhaseError, s.cfg.Texts.LocationNotFound)
		return
	}
	s.searchGen++
	gen := s.searchGen
	s.setStatus(PhaseSearching, s.cfg.Texts.SearchingLocation)
	ctx := s.ctx
	s.deps.Loop.Go(func() {
		place, err := s.deps.Geocoder.Geocode(ctx, query)
		s.deps.Loop.Post(func() { s.geocoded(gen, query, place, err) })
	})
}

func (s *Session) geocoded(gen uint64, query string, place geocode.Place, err error) {
	if gen != s.searchGen {
		s.log.Debug("geocode_superseded", "query", query)
		return
	}
	if err != nil {
		if !failure.Is(err, failure.Geocode) {
			err = failure.New(failure.Geocode, "session.search", err)
		}
		s.log.Info("geocode_failed", "query", query, "err", err)
		s.setStatus(PhaseError, s.cfg.Texts.LocationNotFound)
		return
	}
	if s.deps.Recent != nil {
		if _, err := s.deps.Recent.Save(s.ctx, query, place.Position); err != nil {
			s.log.Debug("recent_save_error", "err", err)
		}
	}
	s.saveOrigin(place.Position)
	s.applyOrigin(place.Position, s.cfg.ZoomTable.ZoomFor(place.Type))
}

// UseMyLocation 用户主动定位；ctx 中的客户端 IP 与坐标线索会被带入定位请求
func (s *Session) UseMyLocation(ctx context.Context) {
	if s.deps.Locator == nil {
		if !s.loaded && !s.loading {
			s.load()
		}
		s.setStatus(PhaseError, s.cfg.Texts.GeolocationNotSupported)
		return
	}
	s.locate(geocode.Carry(s.ctx, ctx), false)
}

func (s *Session) locate(ctx context.Context, silent bool) {
	s.searchGen++
	gen := s.searchGen
	if !silent {
		s.setStatus(PhaseLocating, s.cfg.Texts.GettingLocation)
	}
	s.deps.Loop.Go(func() {
		p, err := s.deps.Locator.Locate(ctx)
		s.deps.Loop.Post(func() { s.located(gen, silent, p, err) })
	})
}

func (s *Session) located(gen uint64, silent bool, p geo.Position, err error) {
	if gen != s.searchGen {
		s.log.Debug("locate_superseded")
		return
	}
	if err == nil && !p.Valid() {
		err = failure.New(failure.Location, "session.locate", ErrInvalidOrigin)
	}
	if err != nil {
		s.log.Info("locate_failed", "silent", silent, "err", err)
		if silent {
			s.load()
			return
		}
		if !s.loaded && !s.loading {
			s.load()
		}
		s.setStatus(PhaseError, s.cfg.Texts.LocationError)
		return
	}
	s.saveOrigin(p)
	s.applyOrigin(p, nav.NoZoom)
}

// SetOrigin 直接指定原点（坐标输入）
func (s *Session) SetOrigin(p geo.Position) error {
	if !p.Valid() {
		return ErrInvalidOrigin
	}
	s.searchGen++
	s.saveOrigin(p)
	s.applyOrigin(p, nav.NoZoom)
	return nil
}

// SelectRecent 选择最近检索：直接使用保存的坐标，不重新地理编码
func (s *Session) SelectRecent(i int) (history.Entry, bool, error) {
	if s.deps.Recent == nil {
		return history.Entry{}, false, nil
	}
	e, ok, err := s.deps.Recent.Get(s.ctx, i)
	if err != nil || !ok {
		return e, ok, err
	}
	if !e.Position.Valid() {
		return e, false, nil
	}
	s.searchGen++
	s.saveOrigin(e.Position)
	s.applyOrigin(e.Position, nav.NoZoom)
	return e, true, nil
}

// SearchThisArea 以当前地图中心为新原点重新排序；地图不移动
func (s *Session) SearchThisArea() geo.Position {
	center := s.anim.AcceptSearchArea()
	s.searchGen++
	s.origin = &center
	s.saveOrigin(center)
	if s.loading {
		return center
	}
	if !s.loaded {
		s.load()
		return center
	}
	s.rerank(false)
	d := s.guarantor.Evaluate(s.results, s.origin, s.anim.Bounds())
	s.farNotice = d.FarNotice
	return center
}

// LoadMore 追加下一批列表项
func (s *Session) LoadMore() int {
	start := s.renderer.Displayed()
	batch := s.renderer.LoadMore()
	if len(batch) > 0 {
		s.deps.List.Append(start, batch)
	}
	return len(batch)
}

func (s *Session) Activate(index int) error { return s.coord.Activate(index) }

func (s *Session) ActivateID(id string) error { return s.coord.ActivateID(id) }

func (s *Session) ClearActive() { s.coord.Clear() }

// Reload 清除当前候选集并重新加载
func (s *Session) Reload() {
	s.loaded = false
	s.load()
}

func (s *Session) applyOrigin(p geo.Position, zoom int) {
	s.origin = &p
	s.pendingZoom = zoom
	s.anim.HideAffordance()
	s.log.Debug("origin_set", "lat", p.Lat, "lng", p.Lng, "zoom", zoom)
	if s.loading {
		return
	}
	if !s.loaded {
		s.load()
		return
	}
	s.rerank(true)
}

func (s *Session) saveOrigin(p geo.Position) {
	if s.deps.State == nil {
		return
	}
	if err := s.deps.State.SaveOrigin(s.ctx, p); err != nil {
		s.log.Debug("origin_save_error", "err", err)
	}
}

func (s *Session) load() {
	s.loadGen++
	gen := s.loadGen
	s.loading = true
	s.setStatus(PhaseLoading, s.cfg.Texts.Loading)
	ctx := s.ctx
	s.deps.Loop.Go(func() {
		cands, err := s.deps.Loader.Load(ctx)
		s.deps.Loop.Post(func() { s.candidatesLoaded(gen, cands, err) })
	})
}

func (s *Session) candidatesLoaded(gen uint64, cands []candidate.Candidate, err error) {
	if gen != s.loadGen {
		s.log.Debug("load_superseded", "gen", gen, "current", s.loadGen)
		return
	}
	s.loading = false
	if err != nil {
		s.log.Error("load_failed", "err", err)
		s.setStatus(PhaseError, s.cfg.Texts.ErrorLoading)
		return
	}
	s.cands = cands
	s.loaded = true
	s.log.Info("candidates_loaded", "count", len(cands))
	s.rerank(true)
}

// rerank 重新排序并重置列表、标记；recenter 为 true 时移动地图并在停稳后执行可见性保证
func (s *Session) rerank(recenter bool) {
	s.coord.Clear()
	s.results = rank.Rank(s.cands, s.origin, s.cfg.Rank)
	s.deps.List.Reset()
	if batch := s.renderer.Reset(s.results); len(batch) > 0 {
		s.deps.List.Append(0, batch)
	}
	s.deps.Markers.Replace(s.markerSet())
	s.farNotice = false
	s.pendingGuarantee = false

	if len(s.results) == 0 {
		s.setStatus(PhaseReady, s.cfg.Texts.NoResults)
		return
	}
	s.setStatus(PhaseReady, "")
	if !recenter {
		return
	}
	if s.origin == nil {
		ps := make([]geo.Position, 0, len(s.results))
		for _, r := range s.markerSet() {
			ps = append(ps, r.Position)
		}
		s.anim.FitRegion(geo.BoundsOf(ps...), s.guarantor.Config().Padding)
		return
	}
	s.pendingGuarantee = true
	zoom := s.pendingZoom
	s.pendingZoom = nav.NoZoom
	if !s.anim.MoveTo(*s.origin, zoom) {
		s.log.Debug("recenter_dropped", "state", s.anim.State().String())
	}
}

func (s *Session) markerSet() []rank.Result {
	if s.cfg.MaxMarkers > 0 && len(s.results) > s.cfg.MaxMarkers {
		return s.results[:s.cfg.MaxMarkers]
	}
	return s.results
}

// settled 程序动画或用户操作停稳：保存地图状态，必要时执行一次可见性保证
func (s *Session) settled(center geo.Position, zoom int) {
	if s.deps.State != nil {
		if err := s.deps.State.SaveMap(s.ctx, history.MapState{Center: center, Zoom: zoom}); err != nil {
			s.log.Debug("map_state_save_error", "err", err)
		}
	}
	if !s.pendingGuarantee {
		return
	}
	s.pendingGuarantee = false
	d := s.guarantor.Evaluate(s.results, s.origin, s.anim.Bounds())
	s.farNotice = d.FarNotice
	applied := s.guarantor.Apply(d, s.anim)
	s.log.Debug("viewport_guarantee", "guarded", len(d.Guarded), "visible", d.Visible, "expand", d.Expand, "applied", applied, "far", d.FarNotice)
}

func (s *Session) setStatus(phase Phase, msg string) {
	s.status = Status{Phase: phase, Message: msg}
}
