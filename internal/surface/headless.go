package surface

import (
	"time"

	"locator/internal/geo"
	"locator/internal/loop"
)

// Events 地图事件接收方，由导航状态机实现
type Events interface {
	HandleIdle()
	HandleDragStart()
	HandleZoomChanged(level int)
}

type MapConfig struct {
	Width, Height    int
	MinZoom, MaxZoom int
	// IdleDelay 状态变化到 idle 事件的延迟；小于 0 时不发出 idle
	IdleDelay time.Duration
}

func DefaultMapConfig() MapConfig {
	return MapConfig{Width: 800, Height: 600, MinZoom: 1, MaxZoom: 21, IdleDelay: 300 * time.Millisecond}
}

// Map 无界面地图：维护中心与缩放，按真实地图的顺序发出 zoom_changed / idle 事件
type Map struct {
	lp      loop.Loop
	cfg     MapConfig
	events  Events
	center  geo.Position
	zoom    int
	idle    loop.Timer
	// idleSeq 最近一次调度的 idle 序号
	idleSeq uint64
}

func NewMap(lp loop.Loop, cfg MapConfig, center geo.Position, zoom int) *Map {
	def := DefaultMapConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.MaxZoom <= 0 {
		cfg.MinZoom, cfg.MaxZoom = def.MinZoom, def.MaxZoom
	}
	m := &Map{lp: lp, cfg: cfg, center: center}
	m.zoom = m.clamp(zoom)
	return m
}

// Bind 绑定事件接收方；未绑定时事件被丢弃
func (m *Map) Bind(ev Events) { m.events = ev }

func (m *Map) clamp(z int) int {
	if z < m.cfg.MinZoom {
		return m.cfg.MinZoom
	}
	if z > m.cfg.MaxZoom {
		return m.cfg.MaxZoom
	}
	return z
}

func (m *Map) SetRegion(b geo.Bounds, padding int) {
	if b.IsEmpty() {
		return
	}
	m.center = regionCenter(b)
	m.changeZoom(fitZoom(b, m.cfg.Width, m.cfg.Height, padding, m.cfg.MinZoom, m.cfg.MaxZoom))
	m.scheduleIdle()
}

func (m *Map) PanTo(p geo.Position) {
	m.center = p
	m.scheduleIdle()
}

func (m *Map) SetZoom(level int) {
	m.changeZoom(level)
	m.scheduleIdle()
}

func (m *Map) changeZoom(level int) {
	level = m.clamp(level)
	if level == m.zoom {
		return
	}
	m.zoom = level
	if m.events != nil {
		ev := m.events
		m.lp.Post(func() { ev.HandleZoomChanged(level) })
	}
}

func (m *Map) scheduleIdle() {
	if m.cfg.IdleDelay < 0 {
		return
	}
	if m.idle != nil {
		m.idle.Stop()
	}
	// 约束：已投递到循环的旧回调无法被 Stop 撤回，按序号丢弃
	m.idleSeq++
	seq := m.idleSeq
	m.idle = m.lp.AfterFunc(m.cfg.IdleDelay, func() {
		if seq != m.idleSeq {
			return
		}
		m.idle = nil
		if m.events != nil {
			m.events.HandleIdle()
		}
	})
}

func (m *Map) Zoom() int            { return m.zoom }
func (m *Map) Center() geo.Position { return m.center }

func (m *Map) Bounds() geo.Bounds {
	return viewBounds(m.center, m.zoom, m.cfg.Width, m.cfg.Height)
}

// Drag 模拟用户拖动到新中心
func (m *Map) Drag(to geo.Position) {
	if m.events != nil {
		m.events.HandleDragStart()
	}
	m.center = to
	m.scheduleIdle()
}

// UserZoom 模拟用户手动缩放
func (m *Map) UserZoom(level int) {
	m.changeZoom(level)
	m.scheduleIdle()
}
