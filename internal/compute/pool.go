package compute

// Pool hands out ready-to-use engines partitioned into the two worker
// roles. The cluster checks Ready at construction and then takes sole
// ownership of every engine it receives.
type Pool struct {
	dimension []DimensionEngine
	sampling  []SamplingEngine
	ready     bool
}

// NewPool wraps already-initialized engines into a pool.
func NewPool(dimension []DimensionEngine, sampling []SamplingEngine) *Pool {
	return &Pool{
		dimension: dimension,
		sampling:  sampling,
		ready:     true,
	}
}

// NewCPUPool builds a pool of CPU reference engines, the fallback for
// machines without dedicated accelerators. Each engine gets its own
// derived seed so chains do not walk in lockstep.
func NewCPUPool(dimWorkers, samplingWorkers int, seed int64) *Pool {
	dim := make([]DimensionEngine, dimWorkers)
	for i := range dim {
		dim[i] = NewCPUDimensionEngine(seed + int64(i)*7919)
	}
	smp := make([]SamplingEngine, samplingWorkers)
	for i := range smp {
		smp[i] = NewCPUSamplingEngine(seed + int64(1000+i)*7919)
	}
	return NewPool(dim, smp)
}

func (p *Pool) Dimension() []DimensionEngine { return p.dimension }
func (p *Pool) Sampling() []SamplingEngine   { return p.sampling }
func (p *Pool) Ready() bool                  { return p != nil && p.ready }
