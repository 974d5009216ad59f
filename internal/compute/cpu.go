package compute

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// CPU reference engines. They implement the same device contract as the
// accelerator backends, so the cluster and its tests run on any machine.

var (
	// ErrNotInitialized indicates Init was never called on the engine.
	ErrNotInitialized = errors.New("compute: engine not initialized")

	// ErrNoTopology indicates a run method was called before UploadTopology.
	ErrNoTopology = errors.New("compute: no topology uploaded")

	// ErrTooLarge indicates an uploaded graph exceeds the Init-time capacity.
	ErrTooLarge = errors.New("compute: topology exceeds engine capacity")
)

// CPUDimensionEngine estimates the return-probability trace of lazy random
// walks over the uploaded topology. With probability 1/2 a walker stays
// put, otherwise it moves to a weight-proportional out-neighbor.
type CPUDimensionEngine struct {
	rng      *rand.Rand
	maxNodes int
	walkers  int

	nodes   int
	offsets []int32
	cols    []int32
	weights []float64
	rowSum  []float64

	origin []int32
	pos    []int32
}

func NewCPUDimensionEngine(seed int64) *CPUDimensionEngine {
	return &CPUDimensionEngine{rng: rand.New(rand.NewSource(seed))}
}

func (e *CPUDimensionEngine) Name() string { return "cpu-dimension" }

// Reseed replaces the engine's random stream, for reproducible jobs.
func (e *CPUDimensionEngine) Reseed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

func (e *CPUDimensionEngine) Init(maxNodes, budget int) error {
	if maxNodes <= 0 {
		return fmt.Errorf("compute: maxNodes must be positive, got %d", maxNodes)
	}
	if budget <= 0 {
		budget = 256
	}
	e.maxNodes = maxNodes
	e.walkers = budget
	e.origin = make([]int32, budget)
	e.pos = make([]int32, budget)
	return nil
}

func (e *CPUDimensionEngine) UploadTopology(rowOffsets, colIndices []int32, weights []float64) error {
	if e.maxNodes == 0 {
		return ErrNotInitialized
	}
	nodes := len(rowOffsets) - 1
	if nodes > e.maxNodes {
		return fmt.Errorf("%w: %d nodes, capacity %d", ErrTooLarge, nodes, e.maxNodes)
	}

	e.nodes = nodes
	e.offsets = append(e.offsets[:0], rowOffsets...)
	e.cols = append(e.cols[:0], colIndices...)
	e.weights = append(e.weights[:0], weights...)

	e.rowSum = append(e.rowSum[:0], make([]float64, nodes)...)
	for i := 0; i < nodes; i++ {
		sum := 0.0
		for k := e.offsets[i]; k < e.offsets[i+1]; k++ {
			sum += e.weights[k]
		}
		e.rowSum[i] = sum
	}

	for w := range e.pos {
		start := int32(e.rng.Intn(nodes))
		e.origin[w] = start
		e.pos[w] = start
	}
	return nil
}

// RunSteps advances every walker n steps and returns the fraction of
// walkers sitting at their origin after each step.
func (e *CPUDimensionEngine) RunSteps(n int) ([]float64, error) {
	if e.nodes == 0 {
		return nil, ErrNoTopology
	}

	trace := make([]float64, n)
	for step := 0; step < n; step++ {
		home := 0
		for w := range e.pos {
			if e.rng.Float64() >= 0.5 {
				e.pos[w] = e.hop(e.pos[w])
			}
			if e.pos[w] == e.origin[w] {
				home++
			}
		}
		trace[step] = float64(home) / float64(len(e.pos))
	}
	return trace, nil
}

func (e *CPUDimensionEngine) hop(node int32) int32 {
	lo, hi := e.offsets[node], e.offsets[node+1]
	if lo == hi {
		return node
	}
	r := e.rng.Float64() * e.rowSum[node]
	for k := lo; k < hi; k++ {
		r -= e.weights[k]
		if r <= 0 {
			return e.cols[k]
		}
	}
	return e.cols[hi-1]
}

func (e *CPUDimensionEngine) Release() {
	e.maxNodes = 0
	e.nodes = 0
	e.offsets, e.cols, e.weights, e.rowSum = nil, nil, nil, nil
	e.origin, e.pos = nil, nil
}

// CPUSamplingEngine runs a Metropolis-Hastings chain over ±1 node
// variables with edge-weight couplings. The action is
// S = -Σ_(i→j) w_ij s_i s_j over the uploaded CSR edges.
type CPUSamplingEngine struct {
	rng       *rand.Rand
	maxNodes  int
	proposals int
	beta      float64

	nodes   int
	offsets []int32
	cols    []int32
	weights []float64

	// reverse adjacency so a flip can account for in-edges too
	rOffsets []int32
	rCols    []int32
	rWeights []float64

	spins  []int8
	energy float64
}

func NewCPUSamplingEngine(seed int64) *CPUSamplingEngine {
	return &CPUSamplingEngine{
		rng:  rand.New(rand.NewSource(seed)),
		beta: 1.0,
	}
}

func (e *CPUSamplingEngine) Name() string { return "cpu-sampling" }

func (e *CPUSamplingEngine) SetBeta(beta float64) { e.beta = beta }

func (e *CPUSamplingEngine) Init(maxNodes, budget int) error {
	if maxNodes <= 0 {
		return fmt.Errorf("compute: maxNodes must be positive, got %d", maxNodes)
	}
	if budget <= 0 {
		budget = 64
	}
	e.maxNodes = maxNodes
	e.proposals = budget
	return nil
}

func (e *CPUSamplingEngine) UploadTopology(rowOffsets, colIndices []int32, weights []float64) error {
	if e.maxNodes == 0 {
		return ErrNotInitialized
	}
	nodes := len(rowOffsets) - 1
	if nodes > e.maxNodes {
		return fmt.Errorf("%w: %d nodes, capacity %d", ErrTooLarge, nodes, e.maxNodes)
	}

	e.nodes = nodes
	e.offsets = append(e.offsets[:0], rowOffsets...)
	e.cols = append(e.cols[:0], colIndices...)
	e.weights = append(e.weights[:0], weights...)
	e.buildReverse()

	e.spins = append(e.spins[:0], make([]int8, nodes)...)
	for i := range e.spins {
		if e.rng.Intn(2) == 0 {
			e.spins[i] = 1
		} else {
			e.spins[i] = -1
		}
	}
	e.energy = e.totalAction()
	return nil
}

func (e *CPUSamplingEngine) buildReverse() {
	counts := make([]int32, e.nodes+1)
	for _, c := range e.cols {
		counts[c+1]++
	}
	for i := 0; i < e.nodes; i++ {
		counts[i+1] += counts[i]
	}
	e.rOffsets = counts
	e.rCols = append(e.rCols[:0], make([]int32, len(e.cols))...)
	e.rWeights = append(e.rWeights[:0], make([]float64, len(e.cols))...)

	next := make([]int32, e.nodes)
	copy(next, e.rOffsets[:e.nodes])
	for src := 0; src < e.nodes; src++ {
		for k := e.offsets[src]; k < e.offsets[src+1]; k++ {
			dst := e.cols[k]
			slot := next[dst]
			next[dst]++
			e.rCols[slot] = int32(src)
			e.rWeights[slot] = e.weights[k]
		}
	}
}

func (e *CPUSamplingEngine) totalAction() float64 {
	s := 0.0
	for i := 0; i < e.nodes; i++ {
		si := float64(e.spins[i])
		for k := e.offsets[i]; k < e.offsets[i+1]; k++ {
			s -= e.weights[k] * si * float64(e.spins[e.cols[k]])
		}
	}
	return s
}

// localField sums the couplings seen by node i from both edge directions.
func (e *CPUSamplingEngine) localField(i int32) float64 {
	f := 0.0
	for k := e.offsets[i]; k < e.offsets[i+1]; k++ {
		f += e.weights[k] * float64(e.spins[e.cols[k]])
	}
	for k := e.rOffsets[i]; k < e.rOffsets[i+1]; k++ {
		f += e.rWeights[k] * float64(e.spins[e.rCols[k]])
	}
	return f
}

// Sample performs thinning sweeps of proposals and reads back the current
// action together with the acceptance rate over those proposals.
func (e *CPUSamplingEngine) Sample(thinning int) (EnergySample, error) {
	if e.nodes == 0 {
		return EnergySample{}, ErrNoTopology
	}
	if thinning <= 0 {
		thinning = 1
	}

	total := thinning * e.proposals
	accepted := 0
	for p := 0; p < total; p++ {
		i := int32(e.rng.Intn(e.nodes))
		delta := 2 * float64(e.spins[i]) * e.localField(i)
		if delta <= 0 || e.rng.Float64() < math.Exp(-e.beta*delta) {
			e.spins[i] = -e.spins[i]
			e.energy += delta
			accepted++
		}
	}

	return EnergySample{
		Energy:     e.energy,
		Acceptance: float64(accepted) / float64(total),
	}, nil
}

func (e *CPUSamplingEngine) Release() {
	e.maxNodes = 0
	e.nodes = 0
	e.offsets, e.cols, e.rOffsets, e.rCols = nil, nil, nil, nil
	e.weights, e.rWeights = nil, nil
	e.spins = nil
}
