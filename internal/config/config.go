package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qlattice/internal/cluster"
)

const (
	DefaultDimensionWorkers = 1
	DefaultSamplingWorkers  = 4
	DefaultTMin             = 0.5
	DefaultTMax             = 10.0
	DefaultMaxNodes         = 4096
	DefaultTicks            = 50
	DefaultIntervalMS       = 20
	DefaultNodesPerTick     = 32
	DefaultRadius           = 0.12
)

type Config struct {
	Pool      PoolConfig      `yaml:"pool"`
	Ladder    LadderConfig    `yaml:"ladder"`
	Dimension DimensionConfig `yaml:"dimension"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Run       RunConfig       `yaml:"run"`
}

type PoolConfig struct {
	DimensionWorkers int `yaml:"dimension_workers"`
	SamplingWorkers  int `yaml:"sampling_workers"`
}

type LadderConfig struct {
	TMin float64 `yaml:"t_min"`
	TMax float64 `yaml:"t_max"`
}

type DimensionConfig struct {
	Steps   int   `yaml:"steps"`
	Walkers int   `yaml:"walkers"`
	Skip    int   `yaml:"skip"`
	Seed    int64 `yaml:"seed"`
}

type SamplingConfig struct {
	Samples   int `yaml:"samples"`
	Thinning  int `yaml:"thinning"`
	Proposals int `yaml:"proposals"`
}

type RunConfig struct {
	Ticks        int     `yaml:"ticks"`
	IntervalMS   int     `yaml:"interval_ms"`
	NodesPerTick int     `yaml:"nodes_per_tick"`
	MaxNodes     int     `yaml:"max_nodes"`
	Radius       float64 `yaml:"radius"`
	Seed         int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			DimensionWorkers: DefaultDimensionWorkers,
			SamplingWorkers:  DefaultSamplingWorkers,
		},
		Ladder: LadderConfig{
			TMin: DefaultTMin,
			TMax: DefaultTMax,
		},
		Dimension: DimensionConfig{
			Steps:   512,
			Walkers: 256,
			Skip:    16,
		},
		Sampling: SamplingConfig{
			Samples:   64,
			Thinning:  4,
			Proposals: 64,
		},
		Run: RunConfig{
			Ticks:        DefaultTicks,
			IntervalMS:   DefaultIntervalMS,
			NodesPerTick: DefaultNodesPerTick,
			MaxNodes:     DefaultMaxNodes,
			Radius:       DefaultRadius,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Pool.DimensionWorkers < 0 || c.Pool.SamplingWorkers < 0 {
		return fmt.Errorf("config: worker counts must be non-negative")
	}
	if c.Pool.DimensionWorkers+c.Pool.SamplingWorkers == 0 {
		return fmt.Errorf("config: at least one worker required")
	}
	if c.Ladder.TMin <= 0 || c.Ladder.TMax <= 0 {
		return fmt.Errorf("config: temperatures must be positive, got [%g, %g]",
			c.Ladder.TMin, c.Ladder.TMax)
	}
	if c.Ladder.TMax < c.Ladder.TMin {
		return fmt.Errorf("config: t_max %g below t_min %g", c.Ladder.TMax, c.Ladder.TMin)
	}
	if c.Run.MaxNodes <= 0 {
		return fmt.Errorf("config: max_nodes must be positive, got %d", c.Run.MaxNodes)
	}
	if c.Run.NodesPerTick*c.Run.Ticks > c.Run.MaxNodes {
		return fmt.Errorf("config: %d ticks of %d nodes exceed max_nodes %d",
			c.Run.Ticks, c.Run.NodesPerTick, c.Run.MaxNodes)
	}
	return nil
}

// DimensionJob maps the config onto the cluster's dispatch-time job
// config.
func (c *Config) DimensionJob() cluster.DimensionConfig {
	return cluster.DimensionConfig{
		Steps:   c.Dimension.Steps,
		Walkers: c.Dimension.Walkers,
		Skip:    c.Dimension.Skip,
		Seed:    c.Dimension.Seed,
	}
}

// SamplingJob maps the config onto the cluster's dispatch-time job
// config.
func (c *Config) SamplingJob() cluster.SamplingConfig {
	return cluster.SamplingConfig{
		Samples:   c.Sampling.Samples,
		Thinning:  c.Sampling.Thinning,
		Proposals: c.Sampling.Proposals,
	}
}
