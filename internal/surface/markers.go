package surface

import (
	"locator/internal/geo"
	"locator/internal/rank"
)

// Marker 地图标记快照
type Marker struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Position geo.Position `json:"position"`
	Active   bool         `json:"active"`
}

// Markers 以候选编号为键的标记集合；保持加入顺序
type Markers struct {
	order  []string
	byID   map[string]*Marker
	active string
}

func NewMarkers() *Markers { return &Markers{byID: map[string]*Marker{}} }

// Replace 清除全部标记后按结果重建
func (ms *Markers) Replace(results []rank.Result) {
	ms.order = ms.order[:0]
	ms.byID = make(map[string]*Marker, len(results))
	ms.active = ""
	for _, r := range results {
		if _, dup := ms.byID[r.ID]; dup {
			continue
		}
		ms.order = append(ms.order, r.ID)
		ms.byID[r.ID] = &Marker{ID: r.ID, Title: r.Name, Position: r.Position}
	}
}

func (ms *Markers) Highlight(id string, active bool) {
	m, ok := ms.byID[id]
	if !ok {
		return
	}
	if active && ms.active != "" && ms.active != id {
		if prev, ok := ms.byID[ms.active]; ok {
			prev.Active = false
		}
	}
	m.Active = active
	switch {
	case active:
		ms.active = id
	case ms.active == id:
		ms.active = ""
	}
}

func (ms *Markers) Len() int { return len(ms.order) }

// Active 当前高亮标记编号
func (ms *Markers) Active() string { return ms.active }

func (ms *Markers) Snapshot() []Marker {
	out := make([]Marker, 0, len(ms.order))
	for _, id := range ms.order {
		out = append(out, *ms.byID[id])
	}
	return out
}
