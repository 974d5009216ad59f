package config

// Presets are named starting points for common workloads.
var Presets = map[string]*Config{
	// quick: small graphs, short jobs; smoke-testing a machine.
	"quick": {
		Pool:      PoolConfig{DimensionWorkers: 1, SamplingWorkers: 2},
		Ladder:    LadderConfig{TMin: 0.5, TMax: 5.0},
		Dimension: DimensionConfig{Steps: 128, Walkers: 64, Skip: 8},
		Sampling:  SamplingConfig{Samples: 16, Thinning: 2, Proposals: 32},
		Run:       RunConfig{Ticks: 10, IntervalMS: 10, NodesPerTick: 16, MaxNodes: 512, Radius: 0.2},
	},
	// survey: the default balance of coverage and cost.
	"survey": {
		Pool:      PoolConfig{DimensionWorkers: 1, SamplingWorkers: 4},
		Ladder:    LadderConfig{TMin: 0.5, TMax: 10.0},
		Dimension: DimensionConfig{Steps: 512, Walkers: 256, Skip: 16},
		Sampling:  SamplingConfig{Samples: 64, Thinning: 4, Proposals: 64},
		Run:       RunConfig{Ticks: 50, IntervalMS: 20, NodesPerTick: 32, MaxNodes: 4096, Radius: 0.12},
	},
	// soak: long chains at a wide temperature range; overnight runs.
	"soak": {
		Pool:      PoolConfig{DimensionWorkers: 2, SamplingWorkers: 8},
		Ladder:    LadderConfig{TMin: 0.1, TMax: 25.0},
		Dimension: DimensionConfig{Steps: 2048, Walkers: 1024, Skip: 64},
		Sampling:  SamplingConfig{Samples: 256, Thinning: 8, Proposals: 128},
		Run:       RunConfig{Ticks: 400, IntervalMS: 50, NodesPerTick: 24, MaxNodes: 16384, Radius: 0.08},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
