package cluster

// DimensionConfig bounds one spectral-dimension job. Zero fields take the
// documented defaults.
type DimensionConfig struct {
	Steps   int   // walk steps per job (default 512)
	Walkers int   // concurrent walkers on the device (default 256)
	Skip    int   // thermalization steps excluded from the fit (default 16)
	Seed    int64 // optional; 0 keeps the engine's own stream
}

func (c DimensionConfig) withDefaults() DimensionConfig {
	if c.Steps <= 0 {
		c.Steps = 512
	}
	if c.Walkers <= 0 {
		c.Walkers = 256
	}
	if c.Skip < 0 {
		c.Skip = 0
	} else if c.Skip == 0 {
		c.Skip = 16
	}
	return c
}

// SamplingConfig bounds one vacuum-sampling job. Zero fields take the
// documented defaults.
type SamplingConfig struct {
	Samples   int // energy readbacks per job (default 64)
	Thinning  int // sweeps between readbacks (default 4)
	Proposals int // proposals per sweep (default 64)
}

func (c SamplingConfig) withDefaults() SamplingConfig {
	if c.Samples <= 0 {
		c.Samples = 64
	}
	if c.Thinning <= 0 {
		c.Thinning = 4
	}
	if c.Proposals <= 0 {
		c.Proposals = 64
	}
	return c
}

// JobConfig bundles both role configs; a worker picks the half matching
// its role at dispatch time.
type JobConfig struct {
	Dimension DimensionConfig
	Sampling  SamplingConfig
}
