package graph

import "fmt"

// Snapshot is an immutable description of the lattice topology at one
// simulation tick, in compressed sparse row form. The producer builds one
// per step; after construction nothing may write to it, so a snapshot can
// be shared with a worker without copying.
type Snapshot struct {
	Tick       int64
	Nodes      int
	Edges      int
	RowOffsets []int32 // length Nodes+1, non-decreasing
	ColIndices []int32 // length Edges, values < Nodes
	Weights    []float64
}

// ValidationError reports which part of a snapshot violated an invariant.
type ValidationError struct {
	Tick    int64
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("snapshot tick %d: %s: %s", e.Tick, e.Field, e.Message)
}

// Validate checks every CSR invariant. A snapshot that fails validation
// must never be uploaded to a device.
func (s *Snapshot) Validate() error {
	if s.Nodes < 0 || s.Edges < 0 {
		return ValidationError{s.Tick, "counts", "negative node or edge count"}
	}
	if len(s.RowOffsets) != s.Nodes+1 {
		return ValidationError{s.Tick, "row_offsets",
			fmt.Sprintf("length %d, want %d", len(s.RowOffsets), s.Nodes+1)}
	}
	if len(s.ColIndices) != s.Edges {
		return ValidationError{s.Tick, "col_indices",
			fmt.Sprintf("length %d, want %d", len(s.ColIndices), s.Edges)}
	}
	if len(s.Weights) != s.Edges {
		return ValidationError{s.Tick, "weights",
			fmt.Sprintf("length %d, want %d", len(s.Weights), s.Edges)}
	}
	if s.RowOffsets[0] != 0 {
		return ValidationError{s.Tick, "row_offsets", "first offset not zero"}
	}
	if int(s.RowOffsets[s.Nodes]) != s.Edges {
		return ValidationError{s.Tick, "row_offsets", "last offset does not equal edge count"}
	}
	for i := 0; i < s.Nodes; i++ {
		if s.RowOffsets[i+1] < s.RowOffsets[i] {
			return ValidationError{s.Tick, "row_offsets",
				fmt.Sprintf("decreasing at row %d", i)}
		}
	}
	for i, c := range s.ColIndices {
		if c < 0 || int(c) >= s.Nodes {
			return ValidationError{s.Tick, "col_indices",
				fmt.Sprintf("index %d points at node %d (have %d nodes)", i, c, s.Nodes)}
		}
	}
	return nil
}

// Degree returns the out-degree of node i. The caller is responsible for
// validating the snapshot first.
func (s *Snapshot) Degree(i int) int {
	return int(s.RowOffsets[i+1] - s.RowOffsets[i])
}
