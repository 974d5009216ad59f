package compute

// Engine is the capability surface every device-bound analysis engine
// exposes. An engine owns exactly one device; the cluster guarantees no
// two calls run concurrently on the same engine.
type Engine interface {
	Name() string

	// Init prepares device buffers for graphs up to maxNodes nodes.
	// budget is role-specific: walker count for dimension engines,
	// proposals per sweep for sampling engines.
	Init(maxNodes, budget int) error

	// UploadTopology copies a CSR topology onto the device. The engine
	// must not retain the passed slices beyond the call.
	UploadTopology(rowOffsets, colIndices []int32, weights []float64) error

	// Release frees the device. No method may be called afterwards.
	Release()
}

// DimensionEngine runs lazy random walks and reports the walker return
// probability after each step; the spectral dimension follows from the
// decay of that trace.
type DimensionEngine interface {
	Engine
	RunSteps(n int) ([]float64, error)
}

// EnergySample is one readback from a sampling chain: the current action
// and the acceptance rate over the proposals since the last readback.
type EnergySample struct {
	Energy     float64
	Acceptance float64
}

// SamplingEngine advances one Metropolis chain over the vacuum state.
type SamplingEngine interface {
	Engine
	SetBeta(beta float64)
	Sample(thinning int) (EnergySample, error)
}
