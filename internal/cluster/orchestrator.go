package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/qlattice/internal/compute"
	"github.com/san-kum/qlattice/internal/graph"
	"github.com/san-kum/qlattice/internal/ladder"
)

type orchestratorState int

const (
	stateNew orchestratorState = iota
	stateReady
	stateShutdown
)

// Orchestrator owns the worker set and moves snapshots from the
// simulation loop onto idle devices without ever blocking the caller.
// Lifecycle: New -> Initialize -> NotifyReady... -> Shutdown (terminal).
type Orchestrator struct {
	pool   *compute.Pool
	log    *slog.Logger
	dimCfg DimensionConfig
	smpCfg SamplingConfig
	tMin   float64
	tMax   float64

	// mu guards state and the dispatch scan; it is held only briefly.
	mu        sync.Mutex
	state     orchestratorState
	dimension []*Worker
	sampling  []*Worker

	store   *ResultStore
	pending atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	cbMu        sync.Mutex
	onDimension func(DimensionResult)
	onSampling  func(SamplingResult)
	onError     func(workerID int, err error)
}

// Option configures an Orchestrator before Initialize.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithDimensionConfig(c DimensionConfig) Option {
	return func(o *Orchestrator) { o.dimCfg = c }
}

func WithSamplingConfig(c SamplingConfig) Option {
	return func(o *Orchestrator) { o.smpCfg = c }
}

// WithTemperatureRange sets the endpoints of the parallel-tempering
// ladder assigned across the sampling workers.
func WithTemperatureRange(tMin, tMax float64) Option {
	return func(o *Orchestrator) { o.tMin, o.tMax = tMin, tMax }
}

// OnDimensionResult registers the completion callback for dimension jobs,
// invoked once per successful job from that job's own goroutine.
func OnDimensionResult(fn func(DimensionResult)) Option {
	return func(o *Orchestrator) { o.onDimension = fn }
}

// OnSamplingResult registers the completion callback for sampling jobs.
func OnSamplingResult(fn func(SamplingResult)) Option {
	return func(o *Orchestrator) { o.onSampling = fn }
}

// OnJobError registers the side channel for per-job failures. Failures
// never halt the orchestrator or other in-flight jobs.
func OnJobError(fn func(workerID int, err error)) Option {
	return func(o *Orchestrator) { o.onError = fn }
}

func New(pool *compute.Pool, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		pool:   pool,
		log:    slog.Default(),
		tMin:   0.5,
		tMax:   10.0,
		store:  NewResultStore(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize binds one worker to every engine the pool supplies and
// assigns the temperature ladder across the sampling workers. Calling it
// again is a no-op. maxGraphSize bounds the device buffers for the whole
// run.
func (o *Orchestrator) Initialize(maxGraphSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != stateNew {
		return nil
	}
	if !o.pool.Ready() {
		return ErrPoolNotReady
	}
	if maxGraphSize <= 0 {
		return fmt.Errorf("cluster: maxGraphSize must be positive, got %d", maxGraphSize)
	}

	dimCfg := o.dimCfg.withDefaults()
	smpCfg := o.smpCfg.withDefaults()

	var inited []compute.Engine
	fail := func(err error) error {
		for _, e := range inited {
			e.Release()
		}
		return err
	}

	for i, eng := range o.pool.Dimension() {
		if err := eng.Init(maxGraphSize, dimCfg.Walkers); err != nil {
			return fail(fmt.Errorf("dimension engine %d: %w", i, err))
		}
		inited = append(inited, eng)
		o.dimension = append(o.dimension, newDimensionWorker(i, eng))
	}

	betas := ladder.Generate(len(o.pool.Sampling()), o.tMin, o.tMax)
	for i, eng := range o.pool.Sampling() {
		if err := eng.Init(maxGraphSize, smpCfg.Proposals); err != nil {
			return fail(fmt.Errorf("sampling engine %d: %w", i, err))
		}
		inited = append(inited, eng)
		eng.SetBeta(betas[i])
		o.sampling = append(o.sampling, newSamplingWorker(i, eng, betas[i]))
	}

	o.state = stateReady
	o.log.Info("cluster initialized",
		"dimension_workers", len(o.dimension),
		"sampling_workers", len(o.sampling),
		"t_min", o.tMin, "t_max", o.tMax,
		"max_graph_size", maxGraphSize)
	return nil
}

// NotifyReady offers one snapshot for analysis. It returns in bounded
// time: per role it reserves at most the first free worker and hands the
// job to a goroutine it does not wait for. A role with no free worker is
// skipped for this tick; losing analysis coverage is fine, stalling the
// simulation loop is not. After Shutdown it is a no-op.
func (o *Orchestrator) NotifyReady(snap *graph.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}

	o.mu.Lock()
	switch o.state {
	case stateNew:
		o.mu.Unlock()
		o.log.Warn("snapshot dropped: orchestrator not initialized", "tick", snap.Tick)
		return ErrNotInitialized
	case stateShutdown:
		o.mu.Unlock()
		return nil
	}

	var jobs []*Worker
	if w := firstFree(o.dimension); w != nil {
		jobs = append(jobs, w)
	}
	if w := firstFree(o.sampling); w != nil {
		jobs = append(jobs, w)
	}
	// Register with the WaitGroup while still holding the lock, so a
	// concurrent Shutdown cannot slip between reservation and Add.
	for range jobs {
		o.wg.Add(1)
		o.pending.Add(1)
	}
	o.mu.Unlock()

	for _, w := range jobs {
		go o.runJob(w, snap)
	}
	return nil
}

func firstFree(workers []*Worker) *Worker {
	for _, w := range workers {
		if w.TryReserve() {
			return w
		}
	}
	return nil
}

func (o *Orchestrator) runJob(w *Worker, snap *graph.Snapshot) {
	defer o.wg.Done()
	defer o.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("job panicked", "role", w.Role().String(), "worker", w.ID(), "tick", snap.Tick, "panic", r)
		}
	}()

	res, err := w.Process(o.ctx, snap, JobConfig{o.dimCfg, o.smpCfg})
	switch {
	case err == nil:
		o.deliver(res)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		o.log.Debug("job cancelled", "role", w.Role().String(), "worker", w.ID(), "tick", snap.Tick)
	default:
		o.log.Error("job failed", "role", w.Role().String(), "worker", w.ID(), "tick", snap.Tick, "err", err)
		o.cbMu.Lock()
		cb := o.onError
		o.cbMu.Unlock()
		if cb != nil {
			cb(w.ID(), err)
		}
	}
}

func (o *Orchestrator) deliver(res Result) {
	switch r := res.(type) {
	case DimensionResult:
		o.store.AddDimension(r)
		o.cbMu.Lock()
		cb := o.onDimension
		o.cbMu.Unlock()
		if cb != nil {
			cb(r)
		}
	case SamplingResult:
		o.store.AddSampling(r)
		o.cbMu.Lock()
		cb := o.onSampling
		o.cbMu.Unlock()
		if cb != nil {
			cb(r)
		}
	}
}

// GetLatestResult returns the stored result with the highest tick for the
// role, if any.
func (o *Orchestrator) GetLatestResult(role Role) (Result, bool) {
	switch role {
	case RoleDimension:
		r, ok := o.store.LatestDimension()
		return r, ok
	case RoleSampling:
		r, ok := o.store.LatestSampling()
		return r, ok
	default:
		return nil, false
	}
}

// GetLatestBatch returns all sampling results at the single highest tick,
// ordered by worker id.
func (o *Orchestrator) GetLatestBatch() []SamplingResult {
	return o.store.LatestBatch()
}

// Store exposes the result store for read-only queries.
func (o *Orchestrator) Store() *ResultStore {
	return o.store
}

// GetStatus assembles a point-in-time view of the cluster.
func (o *Orchestrator) GetStatus() ClusterStatus {
	o.mu.Lock()
	st := o.state
	dim := o.dimension
	smp := o.sampling
	o.mu.Unlock()

	status := ClusterStatus{
		Initialized: st != stateNew,
		ShutDown:    st == stateShutdown,
		PendingJobs: int(o.pending.Load()),
	}
	for _, w := range dim {
		ws := workerStatus(w)
		status.Dimension = append(status.Dimension, ws)
		status.Workers++
		if ws.Busy {
			status.BusyWorkers++
		}
	}
	for _, w := range smp {
		ws := workerStatus(w)
		status.Sampling = append(status.Sampling, ws)
		status.Workers++
		if ws.Busy {
			status.BusyWorkers++
		}
	}
	status.DimensionResults, status.SamplingResults = o.store.Counts()
	return status
}

// WaitForCompletion polls until no job is in flight or the timeout
// elapses. It reports, it never cancels.
func (o *Orchestrator) WaitForCompletion(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if o.pending.Load() == 0 && o.busyWorkers() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (o *Orchestrator) busyWorkers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, w := range o.dimension {
		if w.Busy() {
			n++
		}
	}
	for _, w := range o.sampling {
		if w.Busy() {
			n++
		}
	}
	return n
}

// CancelAll signals the shared cancellation context. In-flight jobs
// observe it at iteration granularity and drain without producing
// results.
func (o *Orchestrator) CancelAll() {
	o.cancel()
	o.log.Info("cancellation signalled to all in-flight jobs")
}

// Shutdown cancels everything, joins every in-flight job, and only then
// releases the devices. Terminal and idempotent; NotifyReady becomes a
// no-op afterwards.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.state == stateShutdown {
		o.mu.Unlock()
		return
	}
	prev := o.state
	o.state = stateShutdown
	o.mu.Unlock()

	o.cancel()
	// Devices stay alive until every task that may touch them is done.
	o.wg.Wait()

	if prev == stateReady {
		for _, w := range o.dimension {
			w.dim.Release()
		}
		for _, w := range o.sampling {
			w.smp.Release()
		}
	}

	o.cbMu.Lock()
	o.onDimension = nil
	o.onSampling = nil
	o.onError = nil
	o.cbMu.Unlock()

	o.log.Info("cluster shut down")
}
