package engine

import (
	"context"
	"sync"
	"time"
)

// queue is an unbounded FIFO of editor work. Post never blocks, so a
// listener running on the editor goroutine may post to its own editor.
type queue struct {
	mu    sync.Mutex
	items []func()
	wake  chan struct{}
}

func (q *queue) init() { q.wake = make(chan struct{}, 1) }

func (q *queue) push(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Post schedules fn on the editor goroutine. It is safe to call from any
// goroutine.
func (e *Editor) Post(fn func()) { e.q.push(fn) }

// Do runs fn on the editor goroutine and waits for it to finish.
func (e *Editor) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	e.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the editor goroutine and returns its error. If ctx ends
// first, fn may still run later and its result is discarded.
func (e *Editor) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	e.Post(func() { result <- fn() })
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted work and layout ticks until ctx is cancelled. The
// tick timer only exists while the simulation is running.
func (e *Editor) Run(ctx context.Context) error {
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	interval := e.sim.Params().Interval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	schedule := func() {
		switch running := e.sim.Running(); {
		case running && ticker == nil:
			ticker = time.NewTicker(interval)
			tick = ticker.C
		case !running && ticker != nil:
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}

	for {
		schedule()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.q.wake:
			for _, fn := range e.q.drain() {
				fn()
			}
		case <-tick:
			e.Tick()
		}
	}
}
