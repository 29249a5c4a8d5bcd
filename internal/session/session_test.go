package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locator/internal/candidate"
	"locator/internal/failure"
	"locator/internal/geo"
	"locator/internal/geocode"
	"locator/internal/highlight"
	"locator/internal/history"
	"locator/internal/kv"
	"locator/internal/logger"
	"locator/internal/loop"
	"locator/internal/nav"
	"locator/internal/rank"
	"locator/internal/surface"
)

type fakeLoader struct {
	cands []candidate.Candidate
	// seq 非空时第 n 次调用返回 seq[n-1]，超出后重复最后一份
	seq   [][]candidate.Candidate
	err   error
	calls int
}

func (f *fakeLoader) Load(context.Context) ([]candidate.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if n := len(f.seq); n > 0 {
		return f.seq[min(f.calls, n)-1], nil
	}
	return f.cands, nil
}

type harness struct {
	lp      *loop.Manual
	m       *surface.Map
	markers *surface.Markers
	list    *surface.List
	store   *kv.Memory
	state   *history.State
	recent  *history.Recent
	loader  *fakeLoader
	s       *Session
}

var home = geo.Position{Lat: 51, Lng: 0}

// 原点 (51,0) 附近：c 为优先级但较远，e 远在 69 英里外
func nearby() []candidate.Candidate {
	return []candidate.Candidate{
		{ID: "a", Name: "A", Position: geo.Position{Lat: 51.01, Lng: 0}},
		{ID: "b", Name: "B", Position: geo.Position{Lat: 51.05, Lng: 0}},
		{ID: "c", Name: "C", Position: geo.Position{Lat: 51.4, Lng: 0}, Tier: 1},
		{ID: "d", Name: "D", Position: geo.Position{Lat: 51.1, Lng: 0}},
		{ID: "e", Name: "E", Position: geo.Position{Lat: 52, Lng: 0}},
	}
}

func newHarness(t *testing.T, cands []candidate.Candidate, mutate func(*Config, *Deps)) *harness {
	t.Helper()
	h := &harness{
		lp:      loop.NewManual(time.Date(2025, 3, 26, 12, 0, 0, 0, time.UTC)),
		markers: surface.NewMarkers(),
		list:    surface.NewList(8),
		store:   kv.NewMemory(),
		loader:  &fakeLoader{cands: cands},
	}
	h.state = history.NewState(h.store)
	h.recent = history.NewRecent(h.store, h.lp.Now)
	cfg := DefaultConfig()
	h.m = surface.NewMap(h.lp, surface.DefaultMapConfig(), cfg.DefaultOrigin, cfg.DefaultZoom)
	deps := Deps{
		Loop:    h.lp,
		Loader:  h.loader,
		Recent:  h.recent,
		State:   h.state,
		Surface: h.m,
		Markers: h.markers,
		List:    h.list,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	h.s = New(cfg, deps)
	h.m.Bind(h.s)
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) settle() { h.lp.Advance(5 * time.Second) }

func (h *harness) startAt(t *testing.T, p geo.Position) {
	t.Helper()
	require.NoError(t, h.state.SaveOrigin(context.Background(), p))
	h.s.Start()
	h.settle()
}

func TestStartWithoutOriginListsUnrankedAndFits(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.s.Start()
	assert.Equal(t, PhaseLoading, h.s.Status().Phase)

	h.lp.Drain()
	assert.Equal(t, PhaseReady, h.s.Status().Phase)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, rank.IDs(h.s.Results()))
	assert.False(t, h.s.Results()[0].Ranked)
	assert.Equal(t, 5, h.list.Len())
	assert.Equal(t, 5, h.markers.Len())
	assert.Equal(t, nav.Panning, h.s.Animator().State())

	h.settle()
	assert.Equal(t, nav.Idle, h.s.Animator().State())
	for _, c := range nearby() {
		assert.True(t, h.m.Bounds().Contains(c.Position), c.ID)
	}
	assert.LessOrEqual(t, h.m.Zoom(), nav.DefaultConfig().MaxFitZoom)
}

func TestSavedOriginRanksAndGuaranteesNearestVisible(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.startAt(t, home)

	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, rank.IDs(h.s.Results()))
	assert.Equal(t, nav.Idle, h.s.Animator().State())
	bounds := h.m.Bounds()
	for _, id := range []string{"a", "b", "c", "d"} {
		i := indexOf(h.s.Results(), id)
		assert.True(t, bounds.Contains(h.s.Results()[i].Position), id)
	}
	assert.True(t, bounds.Contains(home))
	assert.False(t, h.s.FarNotice())

	ms, ok, err := h.state.Map(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h.m.Zoom(), ms.Zoom)
	assert.Equal(t, 1, h.loader.calls)
}

func TestSearchGeocodesSavesRecentAndRecenters(t *testing.T) {
	target := geo.Position{Lat: 51.02, Lng: 0.01}
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Geocoder = geocode.GeocoderFunc(func(_ context.Context, q string) (geocode.Place, error) {
			return geocode.Place{Position: target, Type: "locality", Label: q}, nil
		})
	})
	h.s.Start()
	h.settle()

	h.s.Search("  Guildford ")
	assert.Equal(t, PhaseSearching, h.s.Status().Phase)
	h.lp.Drain()

	origin, ok := h.s.Origin()
	require.True(t, ok)
	assert.Equal(t, target, origin)
	assert.True(t, h.s.Results()[0].Ranked)
	assert.Equal(t, nav.Panning, h.s.Animator().State())
	h.settle()
	assert.Equal(t, nav.Idle, h.s.Animator().State())

	recent, err := h.recent.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Guildford", recent[0].Query)

	saved, ok, err := h.state.Origin(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, target, saved)
	assert.Equal(t, 1, h.loader.calls)
}

func TestSearchFailureKeepsResults(t *testing.T) {
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Geocoder = geocode.GeocoderFunc(func(context.Context, string) (geocode.Place, error) {
			return geocode.Place{}, geocode.ErrNoResults
		})
	})
	h.startAt(t, home)
	before := rank.IDs(h.s.Results())

	h.s.Search("nowhere")
	h.lp.Drain()

	assert.Equal(t, Status{Phase: PhaseError, Message: DefaultTexts().LocationNotFound}, h.s.Status())
	assert.Equal(t, before, rank.IDs(h.s.Results()))
	origin, _ := h.s.Origin()
	assert.Equal(t, home, origin)
	recent, err := h.recent.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSupersededSearchIsDropped(t *testing.T) {
	places := map[string]geo.Position{
		"first":  {Lat: 52, Lng: 0},
		"second": {Lat: 51.05, Lng: 0},
	}
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Geocoder = geocode.GeocoderFunc(func(_ context.Context, q string) (geocode.Place, error) {
			return geocode.Place{Position: places[q], Type: "route"}, nil
		})
	})
	h.startAt(t, home)

	h.s.Search("first")
	h.s.Search("second")
	h.lp.Drain()

	origin, _ := h.s.Origin()
	assert.Equal(t, places["second"], origin)
	recent, err := h.recent.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "second", recent[0].Query)
}

func TestSupersededLoadIsDropped(t *testing.T) {
	stale := []candidate.Candidate{
		{ID: "old-1", Name: "Old", Position: geo.Position{Lat: 51.02, Lng: 0}},
		{ID: "old-2", Name: "Old", Position: geo.Position{Lat: 51.03, Lng: 0}},
	}
	h := newHarness(t, nil, nil)
	h.loader.seq = [][]candidate.Candidate{stale, nearby()}

	h.s.Start()
	h.s.Reload()
	h.settle()

	assert.Equal(t, 2, h.loader.calls)
	assert.Equal(t, PhaseReady, h.s.Status().Phase)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, rank.IDs(h.s.Results()))
	assert.Equal(t, 5, h.list.Len())
	assert.Equal(t, 5, h.markers.Len())
}

func TestSearchThisAreaDuringLoadKeepsSingleFetch(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.s.Start()
	require.Equal(t, PhaseLoading, h.s.Status().Phase)

	center := h.s.SearchThisArea()
	h.settle()

	assert.Equal(t, 1, h.loader.calls, "in-flight load must not restart")
	origin, ok := h.s.Origin()
	require.True(t, ok)
	assert.Equal(t, center, origin)
	require.Len(t, h.s.Results(), 5)
	assert.True(t, h.s.Results()[0].Ranked)
}

func TestRecenterDuringAnimationIsDroppedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug", "json")
	t.Cleanup(func() { logger.Setup() })

	h := newHarness(t, nearby(), nil)
	h.startAt(t, home)
	require.Equal(t, nav.Idle, h.s.Animator().State())

	first := geo.Position{Lat: 51.2, Lng: 0.1}
	second := geo.Position{Lat: 51.3, Lng: 0.2}
	require.NoError(t, h.s.SetOrigin(first))
	require.Equal(t, nav.Panning, h.s.Animator().State())
	require.NoError(t, h.s.SetOrigin(second))

	assert.Contains(t, buf.String(), `"msg":"recenter_dropped"`)
	assert.NotContains(t, buf.String(), "recenter_deferred")

	h.settle()
	assert.Equal(t, nav.Idle, h.s.Animator().State())
	origin, ok := h.s.Origin()
	require.True(t, ok)
	assert.Equal(t, second, origin)
	assert.Equal(t, "c", h.s.Results()[0].ID)
	assert.True(t, h.s.Results()[0].Ranked)
}

func TestLoadFailureShowsErrorWithoutRetry(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.loader.err = failure.New(failure.Load, "test", errors.New("boom"))
	h.s.Start()
	h.settle()

	assert.Equal(t, Status{Phase: PhaseError, Message: DefaultTexts().ErrorLoading}, h.s.Status())
	assert.Equal(t, 0, h.s.Count())
	assert.Equal(t, 1, h.loader.calls)
}

func TestEmptyCandidateSetShowsNoResults(t *testing.T) {
	h := newHarness(t, []candidate.Candidate{}, nil)
	h.startAt(t, home)

	assert.Equal(t, Status{Phase: PhaseReady, Message: DefaultTexts().NoResults}, h.s.Status())
	assert.Equal(t, 0, h.list.Len())
	assert.Equal(t, 0, h.markers.Len())
}

func TestSilentLocateFailureFallsBackToUnrankedListing(t *testing.T) {
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Locator = geocode.LocatorFunc(func(context.Context) (geo.Position, error) {
			return geo.Position{}, failure.New(failure.Location, "test", errors.New("denied"))
		})
	})
	h.s.Start()
	h.settle()

	assert.Equal(t, PhaseReady, h.s.Status().Phase)
	_, ok := h.s.Origin()
	assert.False(t, ok)
	assert.Equal(t, 5, h.s.Count())
	assert.False(t, h.s.Results()[0].Ranked)
}

func TestLocateSuccessAtStartRanks(t *testing.T) {
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Locator = geocode.LocatorFunc(func(context.Context) (geo.Position, error) { return home, nil })
	})
	h.s.Start()
	h.settle()

	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, rank.IDs(h.s.Results()))
	saved, ok, err := h.state.Origin(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, home, saved)
}

func TestUserLocateFailureShowsManualEntryPrompt(t *testing.T) {
	h := newHarness(t, nearby(), func(_ *Config, d *Deps) {
		d.Locator = geocode.LocatorFunc(func(context.Context) (geo.Position, error) {
			return geo.Position{}, failure.New(failure.Location, "test", geocode.ErrNoClientIP)
		})
	})
	h.startAt(t, home)

	h.s.UseMyLocation(context.Background())
	assert.Equal(t, PhaseLocating, h.s.Status().Phase)
	h.lp.Drain()
	assert.Equal(t, Status{Phase: PhaseError, Message: DefaultTexts().LocationError}, h.s.Status())
	assert.Equal(t, 5, h.s.Count())
}

func TestUseMyLocationWithoutLocator(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.s.UseMyLocation(context.Background())
	assert.Equal(t, DefaultTexts().GeolocationNotSupported, h.s.Status().Message)
	h.lp.Drain()
	assert.Equal(t, 1, h.loader.calls)
}

func TestSetOriginAndSelectRecent(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.startAt(t, home)

	assert.ErrorIs(t, h.s.SetOrigin(geo.Position{Lat: 91}), ErrInvalidOrigin)

	far := geo.Position{Lat: 52, Lng: 0}
	require.NoError(t, h.s.SetOrigin(far))
	h.settle()
	assert.Equal(t, "c", h.s.Results()[0].ID)
	assert.Equal(t, "e", h.s.Results()[1].ID)

	_, err := h.recent.Save(context.Background(), "Woking", home)
	require.NoError(t, err)
	e, ok, err := h.s.SelectRecent(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Woking", e.Query)
	origin, _ := h.s.Origin()
	assert.Equal(t, home, origin)

	_, ok, err = h.s.SelectRecent(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchThisAreaReranksWithoutMoving(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.startAt(t, home)

	dragged := geo.Position{Lat: 53, Lng: 0}
	h.m.Drag(dragged)
	assert.Equal(t, nav.SettlingForSearchArea, h.s.Animator().State())
	h.settle()
	require.True(t, h.s.Animator().AffordanceVisible())

	center := h.s.SearchThisArea()
	assert.Equal(t, dragged, center)
	assert.False(t, h.s.Animator().AffordanceVisible())
	assert.Equal(t, dragged, h.m.Center())
	assert.Equal(t, nav.Idle, h.s.Animator().State())
	assert.Equal(t, []string{"c", "e", "d", "b", "a"}, rank.IDs(h.s.Results()))
	assert.True(t, h.s.FarNotice())
	assert.Equal(t, DefaultTexts().FarNotice, h.s.Snapshot().FarNotice)
}

func TestDragCancelsPendingGuarantee(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	require.NoError(t, h.state.SaveOrigin(context.Background(), home))
	h.s.Start()
	h.lp.Drain()
	require.Equal(t, nav.Panning, h.s.Animator().State())

	dragged := geo.Position{Lat: 50.5, Lng: 0.3}
	h.m.Drag(dragged)
	h.settle()

	assert.Equal(t, dragged, h.m.Center())
	assert.Equal(t, nav.Idle, h.s.Animator().State())
}

func many(n int) []candidate.Candidate {
	out := make([]candidate.Candidate, n)
	for i := range out {
		out[i] = candidate.Candidate{
			ID:       fmt.Sprintf("r%02d", i),
			Name:     fmt.Sprintf("Retailer %d", i),
			Position: geo.Position{Lat: 51 + float64(i)*0.001, Lng: 0},
		}
	}
	return out
}

func TestLoadMoreAndActivate(t *testing.T) {
	h := newHarness(t, many(30), func(c *Config, _ *Deps) {
		c.InitialBatch = 10
		c.IncrementBatch = 5
		c.MaxMarkers = 25
	})
	h.startAt(t, home)

	assert.Equal(t, 10, h.list.Len())
	assert.Equal(t, 25, h.markers.Len())
	assert.Equal(t, 5, h.s.LoadMore())
	assert.Equal(t, 15, h.list.Len())

	require.NoError(t, h.s.Activate(20))
	assert.Equal(t, 21, h.list.Len())
	assert.Equal(t, 20, h.list.Active())
	assert.Equal(t, "r20", h.markers.Active())
	assert.Equal(t, nav.Panning, h.s.Animator().State())
	h.settle()
	assert.Equal(t, highlight.DefaultDetailZoom, h.m.Zoom())

	require.NoError(t, h.s.ActivateID("r03"))
	assert.Equal(t, 3, h.list.Active())
	assert.Equal(t, "r03", h.markers.Active())
	assert.ErrorIs(t, h.s.ActivateID("missing"), highlight.ErrUnknownID)

	h.s.ClearActive()
	assert.Equal(t, -1, h.list.Active())
	assert.Equal(t, "", h.markers.Active())
}

func TestSnapshotEncodes(t *testing.T) {
	h := newHarness(t, nearby(), nil)
	h.startAt(t, home)
	_, err := h.recent.Save(context.Background(), "Guildford", home)
	require.NoError(t, err)
	h.lp.Advance(2 * time.Hour)

	snap := h.s.Snapshot()
	assert.Equal(t, h.s.ID(), snap.ID)
	assert.Equal(t, 5, snap.Count)
	require.Len(t, snap.Items, 5)
	assert.Equal(t, "c", snap.Items[0].ID)
	assert.Contains(t, snap.Items[1].DistanceText, "miles away")
	require.NotNil(t, snap.Map.Bounds)
	require.Len(t, snap.Recent, 1)
	assert.Equal(t, "2h ago", snap.Recent[0].Ago)

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"distance_text"`)
}

func indexOf(rs []rank.Result, id string) int {
	for i, r := range rs {
		if r.ID == id {
			return i
		}
	}
	return -1
}
