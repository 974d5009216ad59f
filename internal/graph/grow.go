package graph

import (
	"math"
	"math/rand"
)

// Growth produces a sequence of snapshots from a growing random-geometric
// lattice: each new node lands at a uniform point in the unit square and
// links (in both directions) to every existing node within the connection
// radius, weighted by proximity. It stands in for the physics loop's real
// topology when driving the cluster from the CLI or from tests.
type Growth struct {
	rng    *rand.Rand
	radius float64
	xs, ys []float64
	adj    [][]halfEdge
}

type halfEdge struct {
	to     int32
	weight float64
}

func NewGrowth(seed int64, radius float64) *Growth {
	if radius <= 0 {
		radius = 0.25
	}
	return &Growth{
		rng:    rand.New(rand.NewSource(seed)),
		radius: radius,
	}
}

// Grow adds n nodes to the lattice.
func (g *Growth) Grow(n int) {
	for k := 0; k < n; k++ {
		x, y := g.rng.Float64(), g.rng.Float64()
		id := len(g.xs)
		g.xs = append(g.xs, x)
		g.ys = append(g.ys, y)
		g.adj = append(g.adj, nil)

		for j := 0; j < id; j++ {
			dx, dy := g.xs[j]-x, g.ys[j]-y
			d := math.Sqrt(dx*dx + dy*dy)
			if d > g.radius {
				continue
			}
			w := 1.0 - d/g.radius
			g.adj[id] = append(g.adj[id], halfEdge{int32(j), w})
			g.adj[j] = append(g.adj[j], halfEdge{int32(id), w})
		}
	}
}

// Nodes returns the current node count.
func (g *Growth) Nodes() int { return len(g.xs) }

// Snapshot freezes the current topology into a CSR snapshot for the given
// tick. The returned snapshot owns its slices; later Grow calls do not
// touch it.
func (g *Growth) Snapshot(tick int64) *Snapshot {
	nodes := len(g.adj)
	edges := 0
	for _, nb := range g.adj {
		edges += len(nb)
	}

	s := &Snapshot{
		Tick:       tick,
		Nodes:      nodes,
		Edges:      edges,
		RowOffsets: make([]int32, nodes+1),
		ColIndices: make([]int32, 0, edges),
		Weights:    make([]float64, 0, edges),
	}
	for i, nb := range g.adj {
		s.RowOffsets[i+1] = s.RowOffsets[i] + int32(len(nb))
		for _, e := range nb {
			s.ColIndices = append(s.ColIndices, e.to)
			s.Weights = append(s.Weights, e.weight)
		}
	}
	return s
}
