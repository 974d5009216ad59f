package cluster

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/qlattice/internal/compute"
	"github.com/san-kum/qlattice/internal/graph"
)

// Worker binds one engine (and through it, one device) to one role and
// enforces exclusive, non-reentrant use. The busy flag is the only piece
// of worker state touched from outside its own Process call.
type Worker struct {
	id   int
	role Role
	beta float64

	dim compute.DimensionEngine
	smp compute.SamplingEngine

	busy     atomic.Bool
	running  atomic.Bool
	lastTick atomic.Int64
}

func newDimensionWorker(id int, eng compute.DimensionEngine) *Worker {
	return &Worker{id: id, role: RoleDimension, dim: eng}
}

func newSamplingWorker(id int, eng compute.SamplingEngine, beta float64) *Worker {
	return &Worker{id: id, role: RoleSampling, smp: eng, beta: beta}
}

func (w *Worker) ID() int         { return w.id }
func (w *Worker) Role() Role      { return w.role }
func (w *Worker) Beta() float64   { return w.beta }
func (w *Worker) Busy() bool      { return w.busy.Load() }
func (w *Worker) LastTick() int64 { return w.lastTick.Load() }

// Temperature returns 1/beta for sampling workers, 0 otherwise.
func (w *Worker) Temperature() float64 {
	if w.role != RoleSampling || w.beta == 0 {
		return 0
	}
	return 1 / w.beta
}

// TryReserve atomically transitions Free to Busy. It returns false
// without side effects if the worker is already busy.
func (w *Worker) TryReserve() bool {
	return w.busy.CompareAndSwap(false, true)
}

// Release undoes a reservation that was never followed by Process.
func (w *Worker) Release() {
	w.busy.Store(false)
}

// Process runs one job. The caller must hold the reservation; calling
// without one, or twice concurrently, fails loudly. The worker returns
// to Free on every exit path, including panics in the engine.
func (w *Worker) Process(ctx context.Context, snap *graph.Snapshot, cfg JobConfig) (Result, error) {
	if !w.busy.Load() {
		return nil, ErrNotReserved
	}
	if !w.running.CompareAndSwap(false, true) {
		return nil, ErrConcurrentProcess
	}
	defer func() {
		w.running.Store(false)
		w.busy.Store(false)
	}()

	if snap == nil {
		return nil, ErrNilSnapshot
	}
	// Reject bad shapes before any device interaction.
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	switch w.role {
	case RoleDimension:
		res, err = w.runDimension(ctx, snap, cfg.Dimension.withDefaults(), start)
	case RoleSampling:
		res, err = w.runSampling(ctx, snap, cfg.Sampling.withDefaults(), start)
	default:
		err = fmt.Errorf("cluster: worker %d has unknown role %v", w.id, w.role)
	}
	if err != nil {
		return nil, err
	}
	w.lastTick.Store(snap.Tick)
	return res, nil
}

// dimensionChunk is the step granularity at which cancellation is observed.
const dimensionChunk = 64

func (w *Worker) runDimension(ctx context.Context, snap *graph.Snapshot, cfg DimensionConfig, start time.Time) (Result, error) {
	if cfg.Seed != 0 {
		if s, ok := w.dim.(interface{ Reseed(int64) }); ok {
			s.Reseed(cfg.Seed)
		}
	}
	if err := w.dim.UploadTopology(snap.RowOffsets, snap.ColIndices, snap.Weights); err != nil {
		return nil, fmt.Errorf("upload tick %d: %w", snap.Tick, err)
	}

	trace := make([]float64, 0, cfg.Steps)
	for len(trace) < cfg.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := cfg.Steps - len(trace)
		if n > dimensionChunk {
			n = dimensionChunk
		}
		part, err := w.dim.RunSteps(n)
		if err != nil {
			return nil, fmt.Errorf("walk tick %d: %w", snap.Tick, err)
		}
		trace = append(trace, part...)
	}

	dim, ok := fitDimension(trace, cfg.Skip)
	return DimensionResult{
		ResultMeta: ResultMeta{
			WorkerID: w.id,
			Tick:     snap.Tick,
			Elapsed:  time.Since(start),
			Nodes:    snap.Nodes,
			Edges:    snap.Edges,
			Valid:    ok,
		},
		Dimension: dim,
	}, nil
}

func (w *Worker) runSampling(ctx context.Context, snap *graph.Snapshot, cfg SamplingConfig, start time.Time) (Result, error) {
	if err := w.smp.UploadTopology(snap.RowOffsets, snap.ColIndices, snap.Weights); err != nil {
		return nil, fmt.Errorf("upload tick %d: %w", snap.Tick, err)
	}

	energies := make([]float64, 0, cfg.Samples)
	accSum := 0.0
	for i := 0; i < cfg.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := w.smp.Sample(cfg.Thinning)
		if err != nil {
			return nil, fmt.Errorf("sample tick %d: %w", snap.Tick, err)
		}
		energies = append(energies, s.Energy)
		accSum += s.Acceptance
	}

	mean, std := meanStd(energies)
	return SamplingResult{
		ResultMeta: ResultMeta{
			WorkerID: w.id,
			Tick:     snap.Tick,
			Elapsed:  time.Since(start),
			Nodes:    snap.Nodes,
			Edges:    snap.Edges,
			Valid:    true,
		},
		Beta:           w.beta,
		Temperature:    w.Temperature(),
		Energies:       energies,
		MeanEnergy:     mean,
		StdEnergy:      std,
		FinalEnergy:    energies[len(energies)-1],
		MeanAcceptance: accSum / float64(len(energies)),
	}, nil
}

// fitDimension turns a return-probability trace into a spectral-dimension
// estimate: p0(t) ~ t^(-d/2), so d = -2 * slope of log p over log t. The
// first skip steps are discarded as thermalization; zero-probability
// entries carry no information and are skipped too.
func fitDimension(trace []float64, skip int) (float64, bool) {
	var xs, ys []float64
	for i := skip; i < len(trace); i++ {
		if trace[i] <= 0 {
			continue
		}
		xs = append(xs, math.Log(float64(i+1)))
		ys = append(ys, math.Log(trace[i]))
	}
	if len(xs) < 2 {
		return 0, false
	}

	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, false
	}
	slope := (n*sxy - sx*sy) / den
	return -2 * slope, true
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
