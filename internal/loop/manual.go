package loop

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Manual 虚拟时钟事件循环，测试中按需推进时间
// 约束：Go 的任务同样排入队列，在 Drain 时同步执行，保证测试确定性
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	l       *Manual
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func NewManual(start time.Time) *Manual { return &Manual{now: start} }

func (l *Manual) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

func (l *Manual) Go(fn func()) { l.Post(fn) }

func (l *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	t := &manualTimer{l: l, at: l.now.Add(d), seq: l.seq, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (l *Manual) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Call 同步执行并排空队列
func (l *Manual) Call(_ context.Context, fn func()) error {
	fn()
	l.Drain()
	return nil
}

// Drain 执行队列中的全部事件（含执行过程中新投递的事件）
func (l *Manual) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

// Advance 推进虚拟时间，按到期顺序触发定时器，每次触发后排空队列
func (l *Manual) Advance(d time.Duration) {
	l.Drain()
	l.mu.Lock()
	target := l.now.Add(d)
	l.mu.Unlock()
	for {
		l.mu.Lock()
		next := l.nextDue(target)
		if next == nil {
			l.now = target
			l.mu.Unlock()
			return
		}
		next.fired = true
		l.now = next.at
		l.mu.Unlock()
		next.fn()
		l.Drain()
	}
}

func (l *Manual) nextDue(limit time.Time) *manualTimer {
	live := l.timers[:0]
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	l.timers = live
	sort.SliceStable(l.timers, func(i, j int) bool {
		if l.timers[i].at.Equal(l.timers[j].at) {
			return l.timers[i].seq < l.timers[j].seq
		}
		return l.timers[i].at.Before(l.timers[j].at)
	})
	if len(l.timers) == 0 || l.timers[0].at.After(limit) {
		return nil
	}
	return l.timers[0]
}

// Pending 未触发且未取消的定时器数量
func (l *Manual) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
