package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/rank"
)

type recordingFitter struct {
	regions  []geo.Bounds
	paddings []int
	accept   bool
}

func (f *recordingFitter) FitRegion(b geo.Bounds, padding int) bool {
	f.regions = append(f.regions, b)
	f.paddings = append(f.paddings, padding)
	return f.accept
}

func ranked(origin geo.Position, cands ...candidate.Candidate) []rank.Result {
	return rank.Rank(cands, &origin, rank.DefaultConfig())
}

func at(id string, lat, lng float64, tier int) candidate.Candidate {
	return candidate.Candidate{ID: id, Position: geo.Position{Lat: lat, Lng: lng}, Tier: tier}
}

func TestExpandsToCoverOriginAndThreeClosest(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	results := ranked(origin,
		at("in", 51.501, -0.101, 0),
		at("n2", 51.6, -0.3, 0),
		at("n3", 51.3, 0.2, 0),
		at("far", 53.5, -2.0, 0),
	)
	visible := geo.Bounds{MinLat: 51.49, MinLng: -0.11, MaxLat: 51.51, MaxLng: -0.09}

	g := New(DefaultConfig())
	d := g.Evaluate(results, &origin, visible)
	require.True(t, d.Expand)
	assert.Equal(t, 1, d.Visible)
	assert.Len(t, d.Guarded, 3)
	assert.True(t, d.Region.Contains(origin))
	for _, id := range []string{"in", "n2", "n3"} {
		for _, r := range results {
			if r.ID == id {
				assert.True(t, d.Region.Contains(r.Position), id)
			}
		}
	}
	assert.False(t, d.Region.Contains(geo.Position{Lat: 53.5, Lng: -2.0}))
	assert.False(t, d.FarNotice)

	f := &recordingFitter{accept: true}
	assert.True(t, g.Apply(d, f))
	require.Len(t, f.regions, 1)
	assert.Equal(t, d.Region, f.regions[0])
	assert.Equal(t, DefaultPadding, f.paddings[0])
}

func TestFewerCandidatesThanMinimum(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	results := ranked(origin, at("only", 52.0, -1.0, 0), at("two", 51.0, 0.5, 0))
	d := New(DefaultConfig()).Evaluate(results, &origin, geo.Bounds{MinLat: 51.4, MinLng: -0.2, MaxLat: 51.6, MaxLng: 0})
	require.True(t, d.Expand)
	assert.Len(t, d.Guarded, 2)
	assert.True(t, d.Region.Contains(results[0].Position))
	assert.True(t, d.Region.Contains(results[1].Position))
	assert.True(t, d.Region.Contains(origin))
}

func TestNoExpansionWhenAllGuardedVisible(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	results := ranked(origin, at("a", 51.51, -0.1, 0), at("b", 51.49, -0.1, 0), at("c", 51.5, -0.12, 0), at("d", 55, 3, 0))
	g := New(DefaultConfig())
	d := g.Evaluate(results, &origin, geo.Bounds{MinLat: 51.4, MinLng: -0.2, MaxLat: 51.6, MaxLng: 0})
	assert.False(t, d.Expand)
	assert.Equal(t, 3, d.Visible)

	f := &recordingFitter{accept: true}
	assert.False(t, g.Apply(d, f))
	assert.Empty(t, f.regions)
}

func TestPrivilegedTopRankedIsGuarded(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	results := ranked(origin,
		at("a", 51.51, -0.1, 0),
		at("b", 51.49, -0.1, 0),
		at("c", 51.5, -0.12, 0),
		at("priv", 52.5, -1.1, 1),
	)
	require.Equal(t, "priv", results[0].ID)

	d := New(DefaultConfig()).Evaluate(results, &origin, geo.Bounds{MinLat: 51.4, MinLng: -0.2, MaxLat: 51.6, MaxLng: 0})
	require.True(t, d.Expand)
	assert.Len(t, d.Guarded, 4)
	assert.Equal(t, 3, d.Visible)
	assert.True(t, d.Region.Contains(geo.Position{Lat: 52.5, Lng: -1.1}))
}

func TestFarNotice(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	results := ranked(origin, at("edinburgh", 55.95, -3.19, 0))
	d := New(DefaultConfig()).Evaluate(results, &origin, geo.EmptyBounds())
	assert.True(t, d.FarNotice)
	assert.Greater(t, d.Closest, 25.0)
}

func TestUnrankedGuardsListHead(t *testing.T) {
	results := rank.Rank([]candidate.Candidate{at("x", 50, 0, 0), at("y", 51, 1, 0), at("z", 52, 2, 0), at("w", 53, 3, 0)}, nil, rank.DefaultConfig())
	d := New(Config{MinVisible: 2}).Evaluate(results, nil, geo.EmptyBounds())
	assert.Equal(t, []int{0, 1}, d.Guarded)
	assert.True(t, d.Expand)
	assert.Equal(t, geo.Bounds{MinLat: 50, MinLng: 0, MaxLat: 51, MaxLng: 1}, d.Region)
	assert.False(t, d.FarNotice)
}

func TestEmptyResults(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	d := New(DefaultConfig()).Evaluate(nil, &origin, geo.EmptyBounds())
	assert.False(t, d.Expand)
	assert.False(t, d.FarNotice)
}
