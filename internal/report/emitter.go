package report

import (
	"context"
	"sync"
	"time"

	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/redact"
)

// Sink consumes summary events.
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics holds delivery counters.
type Metrics struct {
	Enqueued    uint64
	Dropped     uint64
	SinkSuccess map[string]uint64
	SinkFailure map[string]uint64
}

func (m Metrics) clone() Metrics {
	out := Metrics{
		Enqueued:    m.Enqueued,
		Dropped:     m.Dropped,
		SinkSuccess: make(map[string]uint64, len(m.SinkSuccess)),
		SinkFailure: make(map[string]uint64, len(m.SinkFailure)),
	}
	for k, v := range m.SinkSuccess {
		out.SinkSuccess[k] = v
	}
	for k, v := range m.SinkFailure {
		out.SinkFailure[k] = v
	}
	return out
}

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// Emitter buffers events and delivers them to its sinks from background
// workers. A full queue drops events instead of blocking the caller.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	shutdownTimeout time.Duration

	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	metricsMu sync.Mutex
	metrics   Metrics
}

var _ pipeline.Observer = (*Emitter)(nil)

// NewEmitter starts the workers.
func NewEmitter(cfg EmitterConfig, sinks ...Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	em := &Emitter{
		queue:           make(chan *Event, cfg.QueueSize),
		sinks:           sinks,
		shutdownTimeout: cfg.ShutdownTimeout,
		metrics: Metrics{
			SinkSuccess: make(map[string]uint64, len(sinks)),
			SinkFailure: make(map[string]uint64, len(sinks)),
		},
	}
	for _, s := range sinks {
		em.metrics.SinkSuccess[s.Name()] = 0
		em.metrics.SinkFailure[s.Name()] = 0
	}
	for i := 0; i < cfg.Workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}
	return em
}

// ObserveResult summarizes res and enqueues it.
func (e *Emitter) ObserveResult(ctx context.Context, res *pipeline.Result) {
	e.Emit(ctx, BuildEvent(res))
}

// Emit enqueues ev without blocking.
func (e *Emitter) Emit(_ context.Context, ev *Event) {
	if e == nil || ev == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.count(func(m *Metrics) { m.Dropped++ })
		return
	}
	select {
	case e.queue <- ev:
		e.count(func(m *Metrics) { m.Enqueued++ })
	default:
		e.count(func(m *Metrics) { m.Dropped++ })
	}
}

// Close stops accepting events, drains the queue for at most the shutdown
// timeout and closes the sinks. It is safe to call more than once.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
		redact.Logf("report: shutdown timeout, %d events undelivered", len(e.queue))
	}
	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("report: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil {
		return Metrics{}
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics.clone()
}

func (e *Emitter) count(f func(*Metrics)) {
	e.metricsMu.Lock()
	f(&e.metrics)
	e.metricsMu.Unlock()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *Event) {
	for _, s := range e.sinks {
		name := s.Name()
		if err := s.Deliver(context.Background(), ev); err != nil {
			redact.Logf("report: sink %s failed: %v", name, err)
			e.count(func(m *Metrics) { m.SinkFailure[name]++ })
			continue
		}
		e.count(func(m *Metrics) { m.SinkSuccess[name]++ })
	}
}
