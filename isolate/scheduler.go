package isolate

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/IsoBridge/internal/config"
	"github.com/GriffinCanCode/IsoBridge/internal/logging"
	"github.com/GriffinCanCode/IsoBridge/internal/monitoring"
	"github.com/GriffinCanCode/IsoBridge/tracing"
)

// Options configure a Scheduler. The zero value is usable: silent logger,
// private metrics registry, default queue sizing.
type Options struct {
	// Logger receives structured bridge events. Nil means discard.
	Logger *zap.Logger
	// Metrics is the Prometheus registry bridge metrics register on. Nil
	// means a private throwaway registry.
	Metrics prometheus.Registerer
	// QueueCapacity is the initial inbox capacity per environment.
	QueueCapacity int
	// StackDepth is the number of frames captured at invocation sites.
	StackDepth int
	// TracingEnabled turns the correlation-token adapter on.
	TracingEnabled bool
}

// Scheduler owns the environments and their worker goroutines. One worker
// drains one environment's inbox, so queued items for a given environment
// run FIFO and never concurrently. The scheduler also keeps the host-wide
// bookkeeping the deadlock guard needs: which goroutine is the designated
// blocking-capable one, and which goroutines are currently inside an
// asynchronous task.
type Scheduler struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
	cfg     *config.Config
	tracer  *tracing.Tracer

	primary atomic.Uint64 // gid of the blocking-capable goroutine

	mu      sync.Mutex
	running map[uint64]*Environment // gid -> env it is executing async work for
	envs    []*Environment
}

// NewScheduler creates a scheduler with explicit options.
func NewScheduler(opts Options) *Scheduler {
	cfg := config.Default()
	if opts.QueueCapacity > 0 {
		cfg.Queue.Capacity = opts.QueueCapacity
	}
	if opts.StackDepth > 0 {
		cfg.Values.StackDepth = opts.StackDepth
	}

	log := logging.NewNop()
	if opts.Logger != nil {
		log = &logging.Logger{Logger: opts.Logger}
	}

	metrics := monitoring.NewNop()
	if opts.Metrics != nil {
		metrics = monitoring.NewMetricsWith(opts.Metrics)
	}

	return &Scheduler{
		log:     log,
		metrics: metrics,
		cfg:     cfg,
		tracer:  tracing.New(log.Logger, opts.TracingEnabled),
		running: make(map[uint64]*Environment),
	}
}

// NewSchedulerFromEnv creates a scheduler configured from BRIDGE_*
// environment variables, with a real logger and the default Prometheus
// registry when metrics are enabled.
func NewSchedulerFromEnv() (*Scheduler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewNop()
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
	}

	return &Scheduler{
		log:     log,
		metrics: metrics,
		cfg:     cfg,
		tracer:  tracing.New(log.Logger, true),
		running: make(map[uint64]*Environment),
	}, nil
}

// MarkPrimary registers the calling goroutine as the host's designated
// blocking-capable goroutine. Only this goroutine may block on another
// environment's execution lock in synchronous mode.
func (s *Scheduler) MarkPrimary() {
	s.primary.Store(curGID())
}

// IsPrimary reports whether the calling goroutine is the designated
// blocking-capable goroutine.
func (s *Scheduler) IsPrimary() bool {
	gid := s.primary.Load()
	return gid != 0 && gid == curGID()
}

// NewEnvironment creates an environment and starts its worker.
func (s *Scheduler) NewEnvironment() *Environment {
	env := newEnvironment(s)

	s.mu.Lock()
	s.envs = append(s.envs, env)
	s.mu.Unlock()

	s.metrics.EnvsActive.Inc()
	env.log.Debug("environment created")

	go s.runLoop(env)
	return env
}

// CurrentAsyncTask returns the environment the calling goroutine is
// currently executing an asynchronous task for, if any. The deadlock guard
// consults this.
func (s *Scheduler) CurrentAsyncTask() (*Environment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.running[curGID()]
	return env, ok
}

// Tracer returns the correlation-token adapter.
func (s *Scheduler) Tracer() *tracing.Tracer {
	return s.tracer
}

// StackDepth returns the configured invocation-site capture depth.
func (s *Scheduler) StackDepth() int {
	return s.cfg.Values.StackDepth
}

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *logging.Logger {
	return s.log
}

// Metrics returns the scheduler's metrics collector.
func (s *Scheduler) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Shutdown disposes every environment the scheduler created.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	envs := append([]*Environment(nil), s.envs...)
	s.mu.Unlock()

	for _, env := range envs {
		env.Dispose()
	}
}

// runLoop is one environment's worker: it drains the inbox FIFO, executing
// each item under the execution right, until disposal. After disposal it
// applies the drop rules to whatever is still queued.
func (s *Scheduler) runLoop(env *Environment) {
	for {
		for {
			entry, ok := env.queue.pop()
			if !ok {
				break
			}
			if env.disposed.Load() {
				// Disposed mid-drain: pending items follow the drop
				// rules instead of executing.
				s.metrics.QueueDepth.Dec()
				env.finishDroppedEntry(entry)
				continue
			}
			s.execute(env, entry)
		}

		select {
		case <-env.done:
			for _, entry := range env.queue.close() {
				s.metrics.QueueDepth.Dec()
				env.finishDroppedEntry(entry)
			}
			close(env.drained)
			env.log.Debug("worker stopped")
			return
		case <-env.queue.signal:
		}
	}
}

// execute runs one queued item with the execution right held and the
// goroutine registered as inside an async task.
func (s *Scheduler) execute(env *Environment, entry queueEntry) {
	s.metrics.QueueDepth.Dec()

	gid := curGID()
	s.mu.Lock()
	s.running[gid] = env
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, gid)
		s.mu.Unlock()
	}()

	env.log.WithTask(entry.id).Debug("executing queued item", zap.String("kind", postKind(entry.opts)))
	env.runEntry(entry)
}
