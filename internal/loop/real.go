package loop

import (
	"context"
	"sync"
	"time"
)

// Real 基于真实时钟的事件循环
type Real struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

func NewReal() *Real {
	return &Real{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

func (l *Real) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Real) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

func (l *Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

func (l *Real) Now() time.Time { return time.Now() }

// Run 执行事件直到 ctx 取消；返回前等待 Go 启动的任务结束
func (l *Real) Run(ctx context.Context) {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			l.wg.Wait()
			return
		case <-l.wake:
		}
	}
}

// Call 投递 fn 并等待其执行完毕
func (l *Real) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	}
}
