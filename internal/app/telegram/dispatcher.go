package telegram

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/dalemusser/filescout/internal/app/chat"
	"go.uber.org/zap"
)

// Handler runs one turn.
type Handler interface {
	Handle(ctx context.Context, in chat.Inbound) error
}

// DefaultLaneDepth bounds the events queued for a single caller.
const DefaultLaneDepth = 32

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// ErrLaneFull is returned when a caller has too many queued events.
var ErrLaneFull = errors.New("caller queue full")

// Dispatcher runs turns with one FIFO lane per caller: events from the same
// caller are handled strictly in order, different callers run concurrently.
// A lane's goroutine exits once its queue drains.
type Dispatcher struct {
	h     Handler
	log   *zap.Logger
	depth int

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
}

type lane struct {
	queue []chat.Inbound
}

func NewDispatcher(h Handler, logger *zap.Logger, depth int) *Dispatcher {
	if depth <= 0 {
		depth = DefaultLaneDepth
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		h:      h,
		log:    logger,
		depth:  depth,
		base:   base,
		cancel: cancel,
		lanes:  make(map[int64]*lane),
	}
}

// Dispatch queues in on its caller's lane.
func (d *Dispatcher) Dispatch(in chat.Inbound) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	l, running := d.lanes[in.CallerID]
	if !running {
		l = &lane{}
		d.lanes[in.CallerID] = l
	}
	if len(l.queue) >= d.depth {
		d.log.Warn("dropping event, caller queue full",
			zap.Int64("caller_id", in.CallerID),
			zap.Int("depth", d.depth))
		return ErrLaneFull
	}
	l.queue = append(l.queue, in)
	if !running {
		d.wg.Add(1)
		go d.drain(in.CallerID, l)
	}
	return nil
}

func (d *Dispatcher) drain(callerID int64, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			delete(d.lanes, callerID)
			d.mu.Unlock()
			return
		}
		in := l.queue[0]
		l.queue = l.queue[1:]
		d.mu.Unlock()

		d.run(in)
	}
}

func (d *Dispatcher) run(in chat.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("turn panicked",
				zap.Int64("caller_id", in.CallerID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	// Handle logs its own failures.
	_ = d.h.Handle(d.base, in)
}

// Close stops accepting events and waits for queued turns to finish. If
// ctx ends first, in-flight turns see their context canceled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
