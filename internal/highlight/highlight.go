// 包 highlight：列表项与地图标记的单一激活状态协调
package highlight

import (
	"errors"
	"log/slog"

	"locator/internal/geo"
	"locator/internal/logger"
	"locator/internal/rank"
	"locator/internal/render"
)

var ErrUnknownID = errors.New("highlight: unknown candidate id")

const (
	DefaultDetailZoom    = 15
	DefaultScrollPadding = 1
)

// ListView 列表展示面
type ListView interface {
	Append(start int, batch []rank.Result)
	SetActive(index int, active bool)
	// VisibleRange 当前视窗内首尾下标（闭区间）；列表为空时 last < first
	VisibleRange() (first, last int)
	ScrollTo(index int)
}

// Markers 地图标记
type Markers interface {
	Highlight(id string, active bool)
}

// Mover 地图移动请求方，由导航状态机实现
type Mover interface {
	MoveTo(pos geo.Position, zoom int) bool
	Zoom() int
}

type Config struct {
	DetailZoom    int
	ScrollPadding int
}

// Coordinator 保证列表与地图至多一个激活项且两侧一致
type Coordinator struct {
	r       *render.Renderer
	list    ListView
	markers Markers
	mover   Mover
	cfg     Config
	log     *slog.Logger
}

func New(r *render.Renderer, list ListView, markers Markers, mover Mover, cfg Config) *Coordinator {
	if cfg.DetailZoom <= 0 {
		cfg.DetailZoom = DefaultDetailZoom
	}
	if cfg.ScrollPadding < 0 {
		cfg.ScrollPadding = DefaultScrollPadding
	}
	return &Coordinator{r: r, list: list, markers: markers, mover: mover, cfg: cfg, log: logger.Component("highlight")}
}

// Activate 激活第 index 项：取消旧激活、补齐展示批次、滚动与地图居中
func (c *Coordinator) Activate(index int) error {
	res, ok := c.r.Result(index)
	if !ok {
		return render.ErrIndexOutOfRange
	}
	c.Clear()

	start := c.r.Displayed()
	batch, err := c.r.Ensure(index)
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		c.list.Append(start, batch)
	}
	if err := c.r.SetActive(index); err != nil {
		return err
	}
	c.list.SetActive(index, true)
	c.markers.Highlight(res.ID, true)

	first, last := c.list.VisibleRange()
	if index < first+c.cfg.ScrollPadding || index > last-c.cfg.ScrollPadding {
		c.list.ScrollTo(index)
	}

	zoom := c.mover.Zoom()
	if zoom < c.cfg.DetailZoom {
		zoom = c.cfg.DetailZoom
	}
	moved := c.mover.MoveTo(res.Position, zoom)
	c.log.Debug("highlight_activate", "index", index, "id", res.ID, "appended", len(batch), "moved", moved)
	return nil
}

// ActivateID 标记点击入口
func (c *Coordinator) ActivateID(id string) error {
	i := c.r.IndexOf(id)
	if i < 0 {
		return ErrUnknownID
	}
	return c.Activate(i)
}

// Clear 取消当前激活项
func (c *Coordinator) Clear() {
	prev := c.r.Active()
	if prev < 0 {
		return
	}
	if res, ok := c.r.Result(prev); ok {
		c.list.SetActive(prev, false)
		c.markers.Highlight(res.ID, false)
	}
	c.r.ClearActive()
}
