package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards audit events to a sink from a single background
// goroutine, so a slow sink never stalls the authentication path beyond
// the configured buffer. A nil Dispatcher is valid and discards
// everything, so disabled audit costs a nil check per emit.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	events  chan Event
	stopped chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan Event, buffer),
		stopped:    make(chan struct{}),
	}
	go d.forward()
	return d
}

// forward runs until the events channel is closed, which also drains any
// events still buffered at close time.
func (d *Dispatcher) forward() {
	defer close(d.stopped)
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit enqueues an event. With DropIfFull the call never blocks and a
// full buffer increments the drop counter; otherwise it waits for buffer
// space or context cancellation.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	// The read lock pins the channel open: Close cannot proceed while an
	// emit is in flight, so sending here never hits a closed channel.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.events <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, flushes the buffer through the sink, and returns
// once the forwarder has exited. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.stopped
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	<-d.stopped
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
