// Package worker provides a generic bounded worker pool. The decorator uses it
// to run label lookups concurrently: submissions never block, and work offered
// to a full queue is dropped and counted.
//
// Once the start context is cancelled the pool behaves as stopped: Submit
// returns ErrPoolStopped and work still queued is handed to the discard
// function instead of being processed.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tledoux/spar-mets-viewer/metric"
)

const (
	defaultWorkers   = 10
	defaultQueueSize = 1000
)

// Pool processes work items of type T with a fixed number of goroutines.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error
	discard   func(T)

	workChan chan T
	stopCh   chan struct{}
	metrics  *poolMetrics
	wg       sync.WaitGroup

	lifecycleMu sync.Mutex
	ctx         context.Context
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
}

type poolMetrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry registers pool metrics under the given prefix.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithDiscard sets the function receiving work that was queued but will never
// be processed because the pool stopped.
func WithDiscard[T any](fn func(T)) Option[T] {
	return func(p *Pool[T]) {
		p.discard = fn
	}
}

// NewPool creates a new worker pool. Non-positive sizes fall back to defaults.
// Panics if processor is nil.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		pool.metrics = newPoolMetrics(pool.metricsRegistry, pool.metricsPrefix)
	}

	return pool
}

func newPoolMetrics(registry *metric.MetricsRegistry, prefix string) *poolMetrics {
	name := metric.Namespace + "_" + prefix
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name + "_queue_depth",
			Help: "Current worker pool queue depth",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name + "_submitted_total",
			Help: "Total work items submitted",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name + "_processed_total",
			Help: "Total work items processed",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name + "_failed_total",
			Help: "Total work items that failed processing",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: name + "_dropped_total",
			Help: "Total work items dropped due to full queue",
		}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name + "_processing_duration_seconds",
			Help:    "Time spent processing work items",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"status"}),
	}

	// Registration errors only mean the collector is already exported;
	// the pool keeps working with its private collectors.
	serviceName := "worker_pool"
	_ = registry.RegisterGauge(serviceName, prefix+"_queue_depth", m.queueDepth)
	_ = registry.RegisterCounter(serviceName, prefix+"_submitted_total", m.submitted)
	_ = registry.RegisterCounter(serviceName, prefix+"_processed_total", m.processed)
	_ = registry.RegisterCounter(serviceName, prefix+"_failed_total", m.failed)
	_ = registry.RegisterCounter(serviceName, prefix+"_dropped_total", m.dropped)
	_ = registry.RegisterHistogramVec(serviceName, prefix+"_processing_duration_seconds", m.processingTime)

	return m
}

// Submit enqueues work without blocking. Returns ErrQueueFull when the queue is at capacity.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped || p.ctx.Err() != nil {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. They exit when ctx is cancelled or the pool is stopped.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.ctx = ctx
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	go p.watch(ctx)

	p.started = true
	return nil
}

// watch stops the pool when ctx ends before Stop is called.
func (p *Pool[T]) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-p.stopCh:
		return
	}

	p.lifecycleMu.Lock()
	if p.stopped {
		p.lifecycleMu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	close(p.workChan)
	p.lifecycleMu.Unlock()

	p.wg.Wait()
	p.drain()
}

// drain discards the work left in the closed queue. Workers must have exited.
func (p *Pool[T]) drain() {
	for work := range p.workChan {
		if p.discard != nil {
			p.discard(work)
		}
	}
	if p.metrics != nil {
		p.metrics.queueDepth.Set(0)
	}
}

// Stop closes the queue and waits up to timeout for in-flight work to finish.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}

	close(p.stopCh)
	close(p.workChan)
	p.stopped = true

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		// workers leave queued work behind only when ctx was cancelled
		p.drain()
		return nil
	case <-timer.C:
		go func() {
			<-done
			p.drain()
		}()
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}

			start := time.Now()
			err := p.processor(ctx, work)
			duration := time.Since(start)

			p.processed.Add(1)
			if err != nil {
				p.failed.Add(1)
			}

			if p.metrics != nil {
				p.metrics.processed.Inc()
				p.metrics.queueDepth.Set(float64(len(p.workChan)))
				status := "success"
				if err != nil {
					p.metrics.failed.Inc()
					status = "error"
				}
				p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
			}
		}
	}
}
