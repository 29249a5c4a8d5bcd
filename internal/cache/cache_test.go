package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/kv"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func sample() []candidate.Candidate {
	return []candidate.Candidate{
		{ID: "1", Name: "A", Position: geo.Position{Lat: 51.5, Lng: -0.2}, Tier: 2},
		{ID: "2", Name: "B", Position: geo.Position{Lat: 51.51, Lng: -0.1}, Tier: 1},
	}
}

func TestReadWithinExpiryReturnsWrittenSet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := New(kv.NewMemory(), time.Hour, WithClock(clock.now))

	c.Write(ctx, sample())
	clock.t = clock.t.Add(59 * time.Minute)

	got, ok := c.Read(ctx)
	require.True(t, ok)
	assert.Equal(t, sample(), got)
}

func TestReadAfterExpiryPurgesEntry(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := New(store, time.Hour, WithClock(clock.now))

	c.Write(ctx, sample())
	clock.t = clock.t.Add(61 * time.Minute)

	_, ok := c.Read(ctx)
	assert.False(t, ok)
	_, present, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New(kv.NewMemory(), 10*time.Minute, WithClock(clock.now))
	c.Write(ctx, sample())

	clock.t = clock.t.Add(10 * time.Minute)
	_, ok := c.Read(ctx)
	assert.False(t, ok)
}

func TestCorruptEntryIsTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "custom", "{not json"))
	c := New(store, 0, WithKey("custom"))

	_, ok := c.Read(ctx)
	assert.False(t, ok)
	_, present, _ := store.Get(ctx, "custom")
	assert.False(t, present)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}
func (brokenStore) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (brokenStore) Remove(context.Context, string) error      { return errors.New("quota exceeded") }

func TestStoreFailuresNeverSurface(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{}, time.Hour)
	assert.NotPanics(t, func() { c.Write(ctx, sample()) })
	_, ok := c.Read(ctx)
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Clear(ctx) })
}

func TestWriteOverwritesPreviousEntry(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemory(), time.Hour)
	c.Write(ctx, sample())
	c.Write(ctx, sample()[:1])

	got, ok := c.Read(ctx)
	require.True(t, ok)
	assert.Len(t, got, 1)

	c.Clear(ctx)
	_, ok = c.Read(ctx)
	assert.False(t, ok)
}
