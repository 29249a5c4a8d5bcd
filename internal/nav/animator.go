// 包 nav：地图平移/缩放动画状态机与“搜索此区域”去抖检测
package nav

import (
	"log/slog"
	"time"

	"locator/internal/geo"
	"locator/internal/logger"
	"locator/internal/loop"
	"locator/internal/metrics"
)

// State 动画状态
type State int

const (
	Idle State = iota
	Panning
	Zooming
	SettlingForSearchArea
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case Zooming:
		return "zooming"
	case SettlingForSearchArea:
		return "settling_for_search_area"
	}
	return "unknown"
}

// NoZoom MoveTo 不改变缩放级别
const NoZoom = -1

// Surface 地图表面；事件由调用方转交给 Animator 的 Handle* 方法
type Surface interface {
	SetRegion(b geo.Bounds, padding int)
	PanTo(p geo.Position)
	SetZoom(level int)
	Zoom() int
	Bounds() geo.Bounds
	Center() geo.Position
}

type Config struct {
	PanDuration time.Duration
	// PanFallbackSlack 平移完成事件可能不触发，超过 PanDuration+Slack 视为完成
	PanFallbackSlack    time.Duration
	ZoomDuration        time.Duration
	Debounce            time.Duration
	SearchAreaThreshold float64
	Unit                geo.Unit
	MaxFitZoom          int
}

func DefaultConfig() Config {
	return Config{
		PanDuration:         800 * time.Millisecond,
		PanFallbackSlack:    200 * time.Millisecond,
		ZoomDuration:        600 * time.Millisecond,
		Debounce:            500 * time.Millisecond,
		SearchAreaThreshold: 0.5,
		Unit:                geo.Miles,
		MaxFitZoom:          15,
	}
}

// Animator 同一时刻至多一个动画；动画期间的新请求直接丢弃
// 约束：所有方法都必须在事件循环上调用；定时器回调以 step 代次判定是否过期
type Animator struct {
	lp      loop.Loop
	surface Surface
	cfg     Config
	log     *slog.Logger

	state      State
	step       uint64
	targetZoom int
	fitting    bool
	timer      loop.Timer

	userMoved  bool
	affordance bool
	lastCenter *geo.Position
	echoZoom   int

	// OnAffordance “搜索此区域”显隐变化
	OnAffordance func(visible bool)
	// OnSettled 程序动画结束或用户操作停稳后的中心与缩放
	OnSettled func(center geo.Position, zoom int)
}

func New(lp loop.Loop, surface Surface, cfg Config) *Animator {
	def := DefaultConfig()
	if cfg.PanDuration <= 0 {
		cfg.PanDuration = def.PanDuration
	}
	if cfg.PanFallbackSlack <= 0 {
		cfg.PanFallbackSlack = def.PanFallbackSlack
	}
	if cfg.ZoomDuration <= 0 {
		cfg.ZoomDuration = def.ZoomDuration
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.SearchAreaThreshold <= 0 {
		cfg.SearchAreaThreshold = def.SearchAreaThreshold
	}
	if cfg.Unit == "" {
		cfg.Unit = def.Unit
	}
	if cfg.MaxFitZoom <= 0 {
		cfg.MaxFitZoom = def.MaxFitZoom
	}
	return &Animator{lp: lp, surface: surface, cfg: cfg, log: logger.Component("nav"), targetZoom: NoZoom, echoZoom: NoZoom}
}

func (a *Animator) State() State { return a.state }

// Busy 平移或缩放进行中
func (a *Animator) Busy() bool { return a.state == Panning || a.state == Zooming }

func (a *Animator) Zoom() int { return a.surface.Zoom() }

func (a *Animator) Center() geo.Position { return a.surface.Center() }

func (a *Animator) Bounds() geo.Bounds { return a.surface.Bounds() }

func (a *Animator) AffordanceVisible() bool { return a.affordance }

func (a *Animator) UserMoved() bool { return a.userMoved }

// MoveTo 平移到 pos，随后逐级缩放到 zoom（NoZoom 保持当前级别）；动画中返回 false
func (a *Animator) MoveTo(pos geo.Position, zoom int) bool {
	if !a.begin("move_to") {
		return false
	}
	a.targetZoom = zoom
	a.surface.PanTo(pos)
	a.armPanFallback()
	a.log.Debug("nav_pan", "lat", pos.Lat, "lng", pos.Lng, "target_zoom", zoom)
	return true
}

// FitRegion 适配范围；停稳后缩放级别不超过 MaxFitZoom
func (a *Animator) FitRegion(b geo.Bounds, padding int) bool {
	if b.IsEmpty() || !a.begin("fit_region") {
		return false
	}
	a.targetZoom = NoZoom
	a.fitting = true
	a.surface.SetRegion(b, padding)
	a.armPanFallback()
	a.log.Debug("nav_fit", "bounds", b, "padding", padding)
	return true
}

func (a *Animator) begin(op string) bool {
	if a.Busy() {
		metrics.NavMovesDroppedTotal.Inc()
		a.log.Debug("nav_move_dropped", "op", op, "state", a.state.String())
		return false
	}
	a.invalidate()
	a.state = Panning
	a.fitting = false
	a.userMoved = false
	return true
}

// invalidate 作废所有已调度的定时回调
func (a *Animator) invalidate() {
	a.step++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Animator) schedule(d time.Duration, fn func()) {
	gen := a.step
	a.timer = a.lp.AfterFunc(d, func() {
		if gen != a.step {
			return
		}
		a.timer = nil
		fn()
	})
}

func (a *Animator) armPanFallback() {
	a.schedule(a.cfg.PanDuration+a.cfg.PanFallbackSlack, func() {
		if a.state != Panning {
			return
		}
		metrics.NavPanTimeoutsTotal.Inc()
		a.log.Debug("nav_pan_timeout")
		a.panSettled()
	})
}

// HandleIdle 地图停稳事件
func (a *Animator) HandleIdle() {
	switch a.state {
	case Panning:
		a.panSettled()
	case SettlingForSearchArea:
		a.invalidate()
		a.schedule(a.cfg.Debounce, a.debounced)
	}
}

func (a *Animator) panSettled() {
	a.invalidate()
	target := a.targetZoom
	if a.fitting {
		a.fitting = false
		target = NoZoom
		if a.surface.Zoom() > a.cfg.MaxFitZoom {
			target = a.cfg.MaxFitZoom
		}
	}
	cur := a.surface.Zoom()
	if target == NoZoom || target == cur {
		a.finish()
		return
	}
	a.targetZoom = target
	a.state = Zooming
	delta := target - cur
	if delta < 0 {
		delta = -delta
	}
	interval := a.cfg.ZoomDuration / time.Duration(delta)
	a.log.Debug("nav_zoom", "from", cur, "to", target, "interval_ms", interval.Milliseconds())
	a.scheduleZoomStep(interval)
}

func (a *Animator) scheduleZoomStep(interval time.Duration) {
	a.schedule(interval, func() {
		cur := a.surface.Zoom()
		next := cur + 1
		if a.targetZoom < cur {
			next = cur - 1
		}
		a.echoZoom = next
		a.surface.SetZoom(next)
		// 约束：地图限制缩放范围时目标可能不可达，级别未变化即结束
		if a.surface.Zoom() == cur {
			a.log.Debug("nav_zoom_clamped", "zoom", cur, "target", a.targetZoom)
			a.finish()
			return
		}
		if next == a.targetZoom {
			a.finish()
			return
		}
		a.scheduleZoomStep(interval)
	})
}

func (a *Animator) finish() {
	a.invalidate()
	a.state = Idle
	a.targetZoom = NoZoom
	center, zoom := a.surface.Center(), a.surface.Zoom()
	a.echoZoom = zoom
	a.lastCenter = &center
	a.log.Debug("nav_settled", "lat", center.Lat, "lng", center.Lng, "zoom", zoom)
	if a.OnSettled != nil {
		a.OnSettled(center, zoom)
	}
}

// HandleDragStart 用户开始拖动；中止进行中的动画
func (a *Animator) HandleDragStart() {
	if a.Busy() {
		a.log.Debug("nav_animation_aborted", "state", a.state.String())
	}
	a.userMove()
}

// HandleZoomChanged 缩放变化；动画期间与程序缩放的回显被忽略
func (a *Animator) HandleZoomChanged(level int) {
	if a.Busy() {
		return
	}
	if level == a.echoZoom {
		a.echoZoom = NoZoom
		return
	}
	a.userMove()
}

func (a *Animator) userMove() {
	a.invalidate()
	a.state = SettlingForSearchArea
	a.targetZoom = NoZoom
	a.fitting = false
	a.echoZoom = NoZoom
	a.userMoved = true
	a.setAffordance(false)
}

func (a *Animator) debounced() {
	a.state = Idle
	center, zoom := a.surface.Center(), a.surface.Zoom()
	moved := a.lastCenter == nil || geo.Distance(*a.lastCenter, center, a.cfg.Unit) > a.cfg.SearchAreaThreshold
	a.userMoved = false
	a.log.Debug("nav_user_settled", "moved", moved, "zoom", zoom)
	if moved {
		a.setAffordance(true)
	}
	if a.OnSettled != nil {
		a.OnSettled(center, zoom)
	}
}

// AcceptSearchArea 隐藏入口并记录当前中心，返回新的原点
func (a *Animator) AcceptSearchArea() geo.Position {
	center := a.surface.Center()
	a.lastCenter = &center
	a.setAffordance(false)
	return center
}

// RecordCenter 记录“搜索此区域”的比较基准
func (a *Animator) RecordCenter(p geo.Position) {
	a.lastCenter = &p
}

// HideAffordance 新的检索开始时隐藏入口
func (a *Animator) HideAffordance() { a.setAffordance(false) }

func (a *Animator) setAffordance(v bool) {
	if a.affordance == v {
		return
	}
	a.affordance = v
	if a.OnAffordance != nil {
		a.OnAffordance(v)
	}
}
