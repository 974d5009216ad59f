package cluster

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/san-kum/qlattice/internal/compute"
	"github.com/san-kum/qlattice/internal/graph"
)

var errEngineBroken = errors.New("engine broken")

// fakeDimEngine is a scriptable DimensionEngine for orchestrator tests.
// If gate is non-nil, every RunSteps call blocks until the gate closes,
// which lets tests hold a job mid-flight.
type fakeDimEngine struct {
	mu       sync.Mutex
	inits    int
	uploads  int
	runs     int
	releases int32

	gate       chan struct{}
	failUpload bool
	failRun    bool
}

func (e *fakeDimEngine) Name() string { return "fake-dimension" }

func (e *fakeDimEngine) Init(maxNodes, budget int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inits++
	return nil
}

func (e *fakeDimEngine) UploadTopology(ro, ci []int32, w []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploads++
	if e.failUpload {
		return errEngineBroken
	}
	return nil
}

func (e *fakeDimEngine) RunSteps(n int) ([]float64, error) {
	if e.gate != nil {
		<-e.gate
	}
	e.mu.Lock()
	e.runs++
	fail := e.failRun
	e.mu.Unlock()
	if fail {
		return nil, errEngineBroken
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(i+2)
	}
	return out, nil
}

func (e *fakeDimEngine) Release() {
	atomic.AddInt32(&e.releases, 1)
}

func (e *fakeDimEngine) released() int { return int(atomic.LoadInt32(&e.releases)) }

// fakeSmpEngine is the sampling counterpart.
type fakeSmpEngine struct {
	mu       sync.Mutex
	inits    int
	uploads  int
	samples  int
	releases int32
	beta     float64

	gate       chan struct{}
	failSample bool
}

func (e *fakeSmpEngine) Name() string { return "fake-sampling" }

func (e *fakeSmpEngine) Init(maxNodes, budget int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inits++
	return nil
}

func (e *fakeSmpEngine) SetBeta(beta float64) {
	e.mu.Lock()
	e.beta = beta
	e.mu.Unlock()
}

func (e *fakeSmpEngine) getBeta() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beta
}

func (e *fakeSmpEngine) UploadTopology(ro, ci []int32, w []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploads++
	return nil
}

func (e *fakeSmpEngine) Sample(thinning int) (compute.EnergySample, error) {
	if e.gate != nil {
		<-e.gate
	}
	e.mu.Lock()
	e.samples++
	n := e.samples
	fail := e.failSample
	e.mu.Unlock()
	if fail {
		return compute.EnergySample{}, errEngineBroken
	}
	return compute.EnergySample{Energy: -float64(n), Acceptance: 0.5}, nil
}

func (e *fakeSmpEngine) Release() {
	atomic.AddInt32(&e.releases, 1)
}

func (e *fakeSmpEngine) released() int { return int(atomic.LoadInt32(&e.releases)) }

func testSnapshot(tick int64) *graph.Snapshot {
	return &graph.Snapshot{
		Tick:       tick,
		Nodes:      3,
		Edges:      6,
		RowOffsets: []int32{0, 2, 4, 6},
		ColIndices: []int32{1, 2, 0, 2, 0, 1},
		Weights:    []float64{1, 1, 1, 1, 1, 1},
	}
}

func badSnapshot(tick int64) *graph.Snapshot {
	s := testSnapshot(tick)
	s.ColIndices[0] = 99
	return s
}

func testPool(dim []*fakeDimEngine, smp []*fakeSmpEngine) *compute.Pool {
	d := make([]compute.DimensionEngine, len(dim))
	for i := range dim {
		d[i] = dim[i]
	}
	s := make([]compute.SamplingEngine, len(smp))
	for i := range smp {
		s[i] = smp[i]
	}
	return compute.NewPool(d, s)
}
