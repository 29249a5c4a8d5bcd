package session

import (
	"locator/internal/geo"
	"locator/internal/history"
	"locator/internal/rank"
)

// Phase 会话当前阶段
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSearching Phase = "searching"
	PhaseLocating  Phase = "locating"
	PhaseReady     Phase = "ready"
	PhaseError     Phase = "error"
)

type Status struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

// Item 列表中的一项，附带展示用距离文字
type Item struct {
	rank.Result
	Index        int    `json:"index"`
	DistanceText string `json:"distance_text,omitempty"`
	AddressLine  string `json:"address_line"`
}

type MapView struct {
	Center geo.Position `json:"center"`
	Zoom   int          `json:"zoom"`
	// Bounds 地图尚无有效范围时为空
	Bounds     *geo.Bounds `json:"bounds,omitempty"`
	State      string      `json:"state"`
	SearchArea bool        `json:"search_area"`
}

type RecentItem struct {
	history.Entry
	Ago string `json:"ago"`
}

// Snapshot 会话的只读视图，供 HTTP 层序列化
type Snapshot struct {
	ID        string        `json:"id"`
	Status    Status        `json:"status"`
	Origin    *geo.Position `json:"origin,omitempty"`
	Count     int           `json:"count"`
	Displayed int           `json:"displayed"`
	HasMore   bool          `json:"has_more"`
	Active    int           `json:"active"`
	FarNotice string        `json:"far_notice,omitempty"`
	Items     []Item        `json:"items"`
	Map       MapView       `json:"map"`
	Recent    []RecentItem  `json:"recent"`
}

func (s *Session) Status() Status { return s.status }

func (s *Session) Origin() (geo.Position, bool) {
	if s.origin == nil {
		return geo.Position{}, false
	}
	return *s.origin, true
}

func (s *Session) Results() []rank.Result { return s.results }

func (s *Session) Count() int { return len(s.results) }

func (s *Session) FarNotice() bool { return s.farNotice }

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Status:    s.status,
		Count:     len(s.results),
		Displayed: s.renderer.Displayed(),
		HasMore:   s.renderer.HasMore(),
		Active:    s.renderer.Active(),
		Items:     make([]Item, 0, s.renderer.Displayed()),
		Recent:    []RecentItem{},
	}
	if s.origin != nil {
		o := *s.origin
		snap.Origin = &o
	}
	if s.farNotice {
		snap.FarNotice = s.cfg.Texts.FarNotice
	}
	for i, r := range s.renderer.Visible() {
		snap.Items = append(snap.Items, Item{
			Result:       r,
			Index:        i,
			DistanceText: r.DistanceLabel(s.cfg.Rank.Unit),
			AddressLine:  r.AddressLine(),
		})
	}

	snap.Map = MapView{
		Center:     s.anim.Center(),
		Zoom:       s.anim.Zoom(),
		State:      s.anim.State().String(),
		SearchArea: s.anim.AffordanceVisible(),
	}
	if b := s.anim.Bounds(); b.Valid() {
		snap.Map.Bounds = &b
	}

	if s.deps.Recent != nil {
		entries, err := s.deps.Recent.List(s.ctx)
		if err != nil {
			s.log.Debug("recent_list_error", "err", err)
		}
		now := s.deps.Loop.Now()
		for _, e := range entries {
			snap.Recent = append(snap.Recent, RecentItem{Entry: e, Ago: history.RelativeTime(e.Timestamp, now)})
		}
	}
	return snap
}
