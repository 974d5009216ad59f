package cluster

import (
	"fmt"
	"time"
)

// Role partitions workers by the analysis they run.
type Role int

const (
	RoleDimension Role = iota
	RoleSampling
)

func (r Role) String() string {
	switch r {
	case RoleDimension:
		return "dimension"
	case RoleSampling:
		return "sampling"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ResultMeta is the shape shared by both result variants. Results are
// immutable once constructed and appended exactly once per completed job.
type ResultMeta struct {
	WorkerID int
	Tick     int64
	Elapsed  time.Duration
	Nodes    int
	Edges    int
	Valid    bool
}

func (m ResultMeta) Meta() ResultMeta { return m }

// Result is either a DimensionResult or a SamplingResult.
type Result interface {
	Meta() ResultMeta
}

// DimensionResult carries the spectral-dimension estimate for one tick.
type DimensionResult struct {
	ResultMeta
	Dimension float64
}

// SamplingResult carries one chain's energy trace for one tick.
type SamplingResult struct {
	ResultMeta
	Beta           float64
	Temperature    float64
	Energies       []float64
	MeanEnergy     float64
	StdEnergy      float64
	FinalEnergy    float64
	MeanAcceptance float64
}
