package rank

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locator/internal/candidate"
	"locator/internal/geo"
)

func TestRankPrivilegedFirstDespiteDistance(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	cands := []candidate.Candidate{
		{ID: "1", Position: geo.Position{Lat: 51.5, Lng: -0.1}},
		{ID: "2", Position: geo.Position{Lat: 52.5, Lng: -1.1}, Tier: 1},
	}

	got := Rank(cands, &origin, DefaultConfig())

	assert.Equal(t, []string{"2", "1"}, IDs(got))
	assert.True(t, got[0].Privileged)
	assert.Equal(t, 0.0, got[1].Distance)
	assert.Greater(t, got[0].Distance, 70.0)
}

func TestRankWeightedScoreFormula(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	cfg := DefaultConfig()
	cands := []candidate.Candidate{
		{ID: "near-t4", Position: geo.Position{Lat: 51.51, Lng: -0.1}, Tier: 4},
		{ID: "far-t2", Position: geo.Position{Lat: 51.8, Lng: -0.1}, Tier: 2},
		{ID: "far-none", Position: geo.Position{Lat: 51.8, Lng: -0.1}},
		{ID: "unknown-tier", Position: geo.Position{Lat: 51.6, Lng: -0.1}, Tier: 9},
	}

	got := Rank(cands, &origin, cfg)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.WeightedScore, 0.0, r.ID)
		assert.Equal(t, cfg.Advantage(r.Tier), r.TierAdvantage, r.ID)
		assert.InDelta(t, math.Max(0, r.Distance-r.TierAdvantage), r.WeightedScore, 1e-12, r.ID)
	}
	// 0.69mi - 20 -> 0; 20.7mi - 10 -> 10.7; 6.9mi; 20.7mi
	assert.Equal(t, []string{"near-t4", "unknown-tier", "far-t2", "far-none"}, IDs(got))
}

func TestRankIsPermutationAndDoesNotMutateInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		n := rng.Intn(60)
		cands := make([]candidate.Candidate, n)
		for i := range cands {
			cands[i] = candidate.Candidate{
				ID:       fmt.Sprintf("c%d", i),
				Position: geo.Position{Lat: 50 + rng.Float64()*3, Lng: -2 + rng.Float64()*3},
				Tier:     rng.Intn(6),
			}
		}
		before := append([]candidate.Candidate(nil), cands...)
		origin := geo.Position{Lat: 51.5, Lng: -0.5}

		got := Rank(cands, &origin, DefaultConfig())
		require.Len(t, got, n)
		assert.Equal(t, before, cands)

		in := make([]string, n)
		for i, c := range cands {
			in[i] = c.ID
		}
		out := IDs(got)
		sort.Strings(in)
		sort.Strings(out)
		assert.Equal(t, in, out)

		seenStandard := false
		for i, r := range got {
			if !r.Privileged {
				seenStandard = true
				continue
			}
			assert.False(t, seenStandard, "privileged result after standard at %d", i)
		}
	}
}

func TestRankWithoutOriginKeepsInputOrder(t *testing.T) {
	cands := []candidate.Candidate{
		{ID: "b", Position: geo.Position{Lat: 10, Lng: 10}},
		{ID: "a", Position: geo.Position{Lat: 0, Lng: 0}, Tier: 1},
	}
	got := Rank(cands, nil, DefaultConfig())
	assert.Equal(t, []string{"b", "a"}, IDs(got))
	for _, r := range got {
		assert.False(t, r.Ranked)
		assert.Zero(t, r.Distance)
		assert.Empty(t, r.DistanceLabel(geo.Miles))
	}
}

func TestRankNaNSortsLastWithinPartition(t *testing.T) {
	origin := geo.Position{Lat: 51.5, Lng: -0.1}
	cands := []candidate.Candidate{
		{ID: "bad", Position: geo.Position{Lat: math.NaN(), Lng: 0}},
		{ID: "ok", Position: geo.Position{Lat: 51.6, Lng: -0.1}},
		{ID: "bad-priv", Position: geo.Position{Lat: math.NaN(), Lng: 0}, Tier: 1},
		{ID: "ok-priv", Position: geo.Position{Lat: 53, Lng: -0.1}, Tier: 1},
	}
	got := Rank(cands, &origin, DefaultConfig())
	assert.Equal(t, []string{"ok-priv", "bad-priv", "ok", "bad"}, IDs(got))
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "1.3 miles away", FormatDistance(1.25001, geo.Miles))
	assert.Equal(t, "12.0 km away", FormatDistance(12, geo.Kilometers))
	assert.Equal(t, "", FormatDistance(math.NaN(), geo.Miles))
}
