package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTimersFireInOrder(t *testing.T) {
	l := NewManual(time.Unix(0, 0))
	var got []string
	l.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	l.AfterFunc(100*time.Millisecond, func() {
		got = append(got, "a")
		l.Post(func() { got = append(got, "a-post") })
	})
	stopped := l.AfterFunc(200*time.Millisecond, func() { got = append(got, "b") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())
	assert.Equal(t, 2, l.Pending())

	l.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"a", "a-post"}, got)
	assert.Equal(t, time.Unix(0, 0).Add(150*time.Millisecond), l.Now())

	l.Advance(time.Second)
	assert.Equal(t, []string{"a", "a-post", "c"}, got)
	assert.Zero(t, l.Pending())
}

func TestManualTimerScheduledDuringAdvanceFires(t *testing.T) {
	l := NewManual(time.Unix(0, 0))
	n := 0
	var tick func()
	tick = func() {
		n++
		if n < 3 {
			l.AfterFunc(100*time.Millisecond, tick)
		}
	}
	l.AfterFunc(100*time.Millisecond, tick)
	l.Advance(time.Second)
	assert.Equal(t, 3, n)
}

func TestRealLoopSerialisesWork(t *testing.T) {
	l := NewReal()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	defer cancel()

	var counter int64
	for i := 0; i < 50; i++ {
		l.Post(func() { counter++ })
	}
	var seen int64
	require.NoError(t, l.Call(ctx, func() { seen = counter }))
	assert.Equal(t, int64(50), seen)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback not delivered")
	}

	var ran atomic.Bool
	done := make(chan struct{})
	l.Go(func() {
		ran.Store(true)
		l.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background task did not post back")
	}
	assert.True(t, ran.Load())
}
