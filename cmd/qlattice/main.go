package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/qlattice/internal/cluster"
	"github.com/san-kum/qlattice/internal/compute"
	"github.com/san-kum/qlattice/internal/config"
	"github.com/san-kum/qlattice/internal/graph"
	"github.com/san-kum/qlattice/internal/ladder"
	"github.com/san-kum/qlattice/internal/tui"
	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	live       bool
	verbose    bool
	// run overrides
	ticks        int
	intervalMS   int
	maxNodes     int
	nodesPerTick int
	seed         int64
	dimWorkers   int
	smpWorkers   int
	tMin         float64
	tMax         float64
	// ladder command
	ladderCount int
	// init-config
	outPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qlattice",
		Short: "asynchronous geometry analysis for growing lattices",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "grow a lattice and analyze it on the worker cluster",
		RunE:  runCluster,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&live, "live", false, "show the live cluster monitor")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "number of growth ticks")
	runCmd.Flags().IntVar(&intervalMS, "interval", 0, "milliseconds between ticks")
	runCmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "device buffer capacity in nodes")
	runCmd.Flags().IntVar(&nodesPerTick, "nodes-per-tick", 0, "nodes added per tick")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().IntVar(&dimWorkers, "dim-workers", 0, "dimension workers")
	runCmd.Flags().IntVar(&smpWorkers, "sampling-workers", 0, "sampling workers")
	runCmd.Flags().Float64Var(&tMin, "t-min", 0, "coldest ladder temperature")
	runCmd.Flags().Float64Var(&tMax, "t-max", 0, "hottest ladder temperature")

	ladderCmd := &cobra.Command{
		Use:   "ladder",
		Short: "print the temperature ladder for a worker count",
		RunE:  showLadder,
	}
	ladderCmd.Flags().IntVar(&ladderCount, "workers", 4, "sampling worker count")
	ladderCmd.Flags().Float64Var(&tMin, "t-min", config.DefaultTMin, "coldest temperature")
	ladderCmd.Flags().Float64Var(&tMax, "t-max", config.DefaultTMax, "hottest temperature")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWORKERS\tLADDER\tTICKS\tMAX_NODES")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d+%d\t[%g, %g]\t%d\t%d\n",
					name,
					cfg.Pool.DimensionWorkers, cfg.Pool.SamplingWorkers,
					cfg.Ladder.TMin, cfg.Ladder.TMax,
					cfg.Run.Ticks, cfg.Run.MaxNodes)
			}
			return w.Flush()
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config",
		Short: "write the default config to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(outPath, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", outPath)
			return nil
		},
	}
	initConfigCmd.Flags().StringVar(&outPath, "out", "qlattice.yaml", "output path")

	rootCmd.AddCommand(runCmd, ladderCmd, presetsCmd, initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// CLI flags override preset and file values.
	if cmd.Flags().Changed("ticks") {
		cfg.Run.Ticks = ticks
	}
	if cmd.Flags().Changed("interval") {
		cfg.Run.IntervalMS = intervalMS
	}
	if cmd.Flags().Changed("max-nodes") {
		cfg.Run.MaxNodes = maxNodes
	}
	if cmd.Flags().Changed("nodes-per-tick") {
		cfg.Run.NodesPerTick = nodesPerTick
	}
	if cmd.Flags().Changed("seed") || cfg.Run.Seed == 0 {
		cfg.Run.Seed = seed
	}
	if cmd.Flags().Changed("dim-workers") {
		cfg.Pool.DimensionWorkers = dimWorkers
	}
	if cmd.Flags().Changed("sampling-workers") {
		cfg.Pool.SamplingWorkers = smpWorkers
	}
	if cmd.Flags().Changed("t-min") {
		cfg.Ladder.TMin = tMin
	}
	if cmd.Flags().Changed("t-max") {
		cfg.Ladder.TMax = tMax
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if live {
		// The monitor owns the terminal; keep log lines out of it.
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pool := compute.NewCPUPool(cfg.Pool.DimensionWorkers, cfg.Pool.SamplingWorkers, cfg.Run.Seed)
	orch := cluster.New(pool,
		cluster.WithLogger(logger),
		cluster.WithDimensionConfig(cfg.DimensionJob()),
		cluster.WithSamplingConfig(cfg.SamplingJob()),
		cluster.WithTemperatureRange(cfg.Ladder.TMin, cfg.Ladder.TMax),
	)
	if err := orch.Initialize(cfg.Run.MaxNodes); err != nil {
		return err
	}
	defer orch.Shutdown()

	growth := graph.NewGrowth(cfg.Run.Seed, cfg.Run.Radius)
	interval := time.Duration(cfg.Run.IntervalMS) * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		for tick := 1; tick <= cfg.Run.Ticks; tick++ {
			growth.Grow(cfg.Run.NodesPerTick)
			if err := orch.NotifyReady(growth.Snapshot(int64(tick))); err != nil {
				return
			}
			time.Sleep(interval)
		}
	}()

	if live {
		if err := tui.Run(orch, interval); err != nil {
			return err
		}
	}
	<-done

	// Give stragglers the length of one growth phase to finish.
	orch.WaitForCompletion(time.Duration(cfg.Run.Ticks) * interval)

	return printSummary(orch, growth)
}

func printSummary(orch *cluster.Orchestrator, growth *graph.Growth) error {
	status := orch.GetStatus()

	fmt.Printf("final lattice: %d nodes\n", growth.Nodes())
	fmt.Printf("results: %d dimension, %d sampling\n\n",
		status.DimensionResults, status.SamplingResults)

	if r, ok := orch.GetLatestResult(cluster.RoleDimension); ok {
		dr := r.(cluster.DimensionResult)
		fmt.Printf("spectral dimension: %.4f (tick %d, %v)\n\n",
			dr.Dimension, dr.Tick, dr.Elapsed.Round(time.Millisecond))

		history := orch.Store().DimensionHistory()
		if len(history) > 1 {
			trace := make([]float64, len(history))
			for i, h := range history {
				trace[i] = h.Dimension
			}
			fmt.Println(asciigraph.Plot(trace,
				asciigraph.Height(10),
				asciigraph.Width(70),
				asciigraph.Caption("spectral dimension over ticks")))
			fmt.Println()
		}
	}

	batch := orch.GetLatestBatch()
	if len(batch) == 0 {
		return nil
	}

	fmt.Printf("tempering chains at tick %d:\n", batch[0].Tick)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tBETA\tT\tMEAN_E\tSTD_E\tFINAL_E\tACCEPT")
	for _, r := range batch {
		fmt.Fprintf(w, "%d\t%.4f\t%.3f\t%.3f\t%.3f\t%.3f\t%.1f%%\n",
			r.WorkerID, r.Beta, r.Temperature,
			r.MeanEnergy, r.StdEnergy, r.FinalEnergy, 100*r.MeanAcceptance)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// The coldest chain's energy trace shows equilibration best.
	cold := batch[0]
	if len(cold.Energies) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(cold.Energies,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("energy trace, chain %d (T=%.3f)", cold.WorkerID, cold.Temperature))))
	}
	return nil
}

func showLadder(cmd *cobra.Command, args []string) error {
	if ladderCount <= 0 {
		return fmt.Errorf("workers must be positive, got %d", ladderCount)
	}
	if tMin <= 0 || tMax < tMin {
		return fmt.Errorf("need 0 < t-min <= t-max, got [%g, %g]", tMin, tMax)
	}

	betas := ladder.Generate(ladderCount, tMin, tMax)
	temps := ladder.Temperatures(betas)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tBETA\tT")
	for i := range betas {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\n", i, betas[i], temps[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(temps) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(temps,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("temperature by chain")))
	}
	return nil
}
