package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/comalice/attributex"
)

// ErrQueueFull is returned by Submit when the tick's request queue is full.
var ErrQueueFull = errors.New("change request queue full")

// Config configures a FrameRunner.
type Config struct {
	TickRate           time.Duration // default 60 FPS
	MaxRequestsPerTick int           // default 1000
	// OnFrame, if set, is called after every tick from the tick goroutine
	// with the container lock held.
	OnFrame func(c *attributex.Container, f Frame)
}

// FrameRunner applies queued change requests to one container per tick.
type FrameRunner struct {
	container *attributex.Container
	onFrame   func(c *attributex.Container, f Frame)
	mu        sync.Mutex // serializes container access

	tickRate time.Duration
	ticker   *time.Ticker
	tickNum  uint64

	batch       []requestWithMeta
	batchMu     sync.Mutex
	sequenceNum uint64

	tickCtx    context.Context
	tickCancel context.CancelFunc
	stopped    chan struct{}
}

// NewFrameRunner returns a stopped runner for c.
func NewFrameRunner(c *attributex.Container, cfg Config) *FrameRunner {
	if cfg.MaxRequestsPerTick == 0 {
		cfg.MaxRequestsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	return &FrameRunner{
		container: c,
		onFrame:   cfg.OnFrame,
		tickRate:  cfg.TickRate,
		batch:     make([]requestWithMeta, 0, cfg.MaxRequestsPerTick),
	}
}

// Start begins ticking until ctx is done or Stop is called.
func (r *FrameRunner) Start(ctx context.Context) error {
	if r.stopped != nil {
		return errors.New("frame runner already started")
	}
	r.tickCtx, r.tickCancel = context.WithCancel(ctx)
	r.ticker = time.NewTicker(r.tickRate)
	r.stopped = make(chan struct{})
	go r.tickLoop()
	return nil
}

// Stop stops ticking and waits for the current tick to finish. Requests still
// queued stay queued; Step applies them.
func (r *FrameRunner) Stop() error {
	if r.stopped == nil {
		return nil
	}
	r.tickCancel()
	r.ticker.Stop()
	<-r.stopped
	return nil
}

func (r *FrameRunner) tickLoop() {
	defer close(r.stopped)
	for {
		select {
		case <-r.tickCtx.Done():
			return
		case <-r.ticker.C:
			r.Step()
		}
	}
}

// Submit queues req for the next tick at priority 0.
func (r *FrameRunner) Submit(req ChangeRequest) error {
	return r.SubmitWithPriority(req, 0)
}

// SubmitWithPriority queues req for the next tick.
func (r *FrameRunner) SubmitWithPriority(req ChangeRequest, priority int) error {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	if len(r.batch) >= cap(r.batch) {
		return ErrQueueFull
	}
	r.batch = append(r.batch, requestWithMeta{
		req:         req,
		sequenceNum: r.sequenceNum,
		priority:    priority,
	})
	r.sequenceNum++
	return nil
}

// TickNumber returns the number of completed ticks.
func (r *FrameRunner) TickNumber() uint64 {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.tickNum
}

// Do runs fn with exclusive access to the container. Use it to read values
// from other goroutines while the runner is ticking.
func (r *FrameRunner) Do(fn func(c *attributex.Container)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.container)
}
