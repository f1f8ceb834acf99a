package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/nbody/internal/automation"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/experiment"
	"github.com/san-kum/nbody/internal/export"
	"github.com/san-kum/nbody/internal/gui"
	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/optim"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/storage"
	"github.com/san-kum/nbody/internal/stream"
	"github.com/san-kum/nbody/internal/verify"
	"github.com/san-kum/nbody/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir       string
	configFile    string
	preset        string
	dt            float32
	iterations    int
	seed          uint64
	backendName   string
	assess        bool
	tolerance     float64
	minThroughput float64
	validate      bool
	tileWidth     int
	groupSize     int
	fanout        int
	workers       int
	exponent      int
	noVerify      bool
	noSave        bool

	benchExponent   int
	benchIterations int
	benchBackend    string
	benchWorkers    int

	svgView   bool
	svgWidth  int
	svgHeight int

	serveAddr     string
	serveInterval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "nbody",
		Short:         "direct-sum gravitational n-body simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".nbody", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [k] [salt]",
		Short: "simulate 2^(k+11) bodies and report throughput",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the accuracy or performance check")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "sweep tile widths and fan-outs",
		Args:  cobra.NoArgs,
		RunE:  benchLayouts,
	}
	benchCmd.Flags().IntVar(&benchExponent, "k", 0, "body count exponent, N = 2^(k+11)")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 3, "iterations per layout")
	benchCmd.Flags().StringVar(&benchBackend, "backend", "cpu", "compute backend (auto, cpu, cuda)")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "concurrent groups (0 = GOMAXPROCS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-iteration times of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export final bodies of a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render final bodies of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().BoolVar(&svgView, "view", false, "render the rotated 3D view instead of the x/y projection")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 800, "image height")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live terminal visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&exponent, "k", 0, "body count exponent, N = 2^(k+11)")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run simulation in a 3D window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	addSimFlags(guiCmd)
	guiCmd.Flags().IntVar(&exponent, "k", 0, "body count exponent, N = 2^(k+11)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream a running simulation over websocket",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().IntVar(&exponent, "k", 0, "body count exponent, N = 2^(k+11)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 50*time.Millisecond, "time between iterations")

	rootCmd.AddCommand(runCmd, benchCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, scenarioCmd, presetsCmd, liveCmd, guiCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float32Var(&dt, "dt", sim.DefaultDt, "timestep")
	f.IntVar(&iterations, "iterations", sim.DefaultIterations, "iterations")
	f.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed for the initial bodies")
	f.StringVar(&backendName, "backend", "auto", "compute backend (auto, cpu, cuda; gui also accepts opengl)")
	f.BoolVar(&assess, "assess", false, "check throughput instead of accuracy")
	f.Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "relative accuracy tolerance")
	f.Float64Var(&minThroughput, "min-throughput", 0, "minimum billion interactions / second when assessing")
	f.BoolVar(&validate, "validate", false, "check for NaN or Inf after every iteration")
	f.IntVar(&tileWidth, "tile-width", compute.DefaultTileWidth, "bodies per tile")
	f.IntVar(&groupSize, "group-size", compute.DefaultGroupSize, "units per cooperative group")
	f.IntVar(&fanout, "fanout", compute.DefaultFanout, "units per body")
	f.IntVar(&workers, "workers", 0, "concurrent groups (0 = GOMAXPROCS)")
}

// resolveConfig layers preset, config file and explicitly set flags, in that
// order. The positional k and salt of run win over all three.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("assess") {
		cfg.Assess = assess
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("min-throughput") {
		cfg.MinThroughput = minThroughput
	}
	if flags.Changed("validate") {
		cfg.Validate = validate
	}
	if flags.Changed("tile-width") {
		cfg.Layout.TileWidth = tileWidth
	}
	if flags.Changed("group-size") {
		cfg.Layout.GroupSize = groupSize
	}
	if flags.Changed("fanout") {
		cfg.Layout.Fanout = fanout
	}
	if flags.Changed("workers") {
		cfg.Layout.Workers = workers
	}
	if flags.Changed("k") {
		cfg.Exponent = exponent
	}

	if len(args) > 0 {
		k, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid k %q: %w", args[0], err)
		}
		cfg.Exponent = k
	}
	if len(args) > 1 {
		salt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid salt %q: %w", args[1], err)
		}
		cfg.Salt = salt
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initialBodies(cfg *config.Config) *body.State {
	st := body.New(cfg.NumBodies())
	body.Randomize(st, cfg.Seed)
	return st
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	defer exp.Close()
	if err := exp.Setup(nil, metrics.Default(cfg.NumBodies())); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	layout := cfg.ComputeLayout()
	fmt.Printf("running %d bodies on %s (tile %d, group %d, fanout %d)...\n",
		cfg.NumBodies(), exp.Backend().Name(), layout.TileWidth, layout.GroupSize, layout.Fanout)

	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	var report *verify.Report
	var verr error
	if noVerify {
		report = &verify.Report{Bodies: out.Final.Len(), Iterations: out.Result.Iterations, Throughput: out.Result.Throughput, Salt: cfg.Salt}
	} else {
		report, verr = exp.Verify(out)
		if report == nil {
			return verr
		}
	}

	printReport(report)
	if len(out.Result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for name, val := range out.Result.Metrics {
			fmt.Printf("  %s: %.6e\n", name, val)
		}
	}

	if !noSave {
		runID, err := saveRun(cfg, exp.Backend().Name(), out, report)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}

	return verr
}

func printReport(report *verify.Report) {
	fmt.Println(report.Summary())
	switch report.Mode {
	case verify.ModeAccuracy:
		fmt.Printf("accuracy: position error %.3e, velocity error %.3e (tolerance %.1e)\n",
			report.PositionError, report.VelocityError, report.Tolerance)
	case verify.ModePerformance:
		fmt.Printf("performance: minimum %.3f, salt %d\n", report.MinThroughput, report.Salt)
	}
}

func saveRun(cfg *config.Config, backend string, out *experiment.Outcome, report *verify.Report) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	meta := storage.RunMetadata{
		Exponent: cfg.Exponent,
		Salt:     cfg.Salt,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Backend:  backend,
		Layout:   storage.LayoutOf(cfg.ComputeLayout()),
	}
	if report != nil && report.Mode != "" {
		meta.Report = storage.ReportOf(report)
	}
	return st.Save(meta, out.Final, out.Result)
}

func benchLayouts(cmd *cobra.Command, args []string) error {
	if benchExponent < 0 || benchExponent > config.MaxExponent {
		return fmt.Errorf("%w: k must be in [0, %d]", config.ErrInvalid, config.MaxExponent)
	}
	if benchIterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive", config.ErrInvalid)
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := config.DefaultConfig()
		cfg.Exponent = benchExponent
		cfg.Iterations = benchIterations
		cfg.Backend = benchBackend
		cfg.Layout = config.LayoutConfig{
			TileWidth: int(params["tile_width"]),
			GroupSize: compute.DefaultGroupSize * int(params["fanout"]),
			Fanout:    int(params["fanout"]),
			Workers:   benchWorkers,
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(nil, nil); err != nil {
			return nil, err
		}
		return exp, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := 1 << (benchExponent + config.BaseExponent)
	fmt.Printf("benchmarking %d bodies, %d iterations per layout\n\n", n, benchIterations)

	grid := optim.NewGridSearch(
		[]string{"tile_width", "fanout"},
		[][]float64{{32, 64, 128, 256}, {1, 2, 4, 8}},
	)
	trials, best := grid.Search(ctx, build, func(o *experiment.Outcome) float64 {
		return o.Result.MeanIterationTime.Seconds()
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TILE\tGROUP\tFANOUT\tMEAN\tG-INTERACTIONS/S")
	for _, t := range trials {
		tw, f := int(t.Params["tile_width"]), int(t.Params["fanout"])
		if t.Err != nil {
			fmt.Fprintf(w, "%d\t%d\t%d\t-\terror: %v\n", tw, compute.DefaultGroupSize*f, f, t.Err)
			continue
		}
		mean := time.Duration(t.Score * float64(time.Second))
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%.3f\n", tw, compute.DefaultGroupSize*f, f, mean, sim.Throughput(n, mean))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best >= 0 {
		b := trials[best]
		fmt.Printf("\nbest: tile %d, fanout %d\n", int(b.Params["tile_width"]), int(b.Params["fanout"]))
	}
	return ctx.Err()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, func(r automation.StepResult) {
		fmt.Printf("\n[%s #%d] %d bodies\n", r.Step, r.Run+1, r.Config.NumBodies())
		if r.Report != nil {
			printReport(r.Report)
		}
		if r.Err != nil {
			fmt.Printf("failed: %v\n", r.Err)
		}
		if r.Outcome != nil && !noSave {
			runID, err := saveRun(r.Config, r.Backend, r.Outcome, r.Report)
			if err != nil {
				fmt.Printf("save failed: %v\n", err)
				return
			}
			fmt.Printf("run id: %s\n", runID)
		}
	})

	passed, failed := automation.Summary(results)
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st, err := storage.New(dataDir).LoadBodies(args[0])
	if err != nil {
		return err
	}

	if svgView {
		canvas := viz.NewCanvas(160, 80)
		cam := viz.NewCamera()
		viz.DrawAxes(canvas, cam)
		viz.DrawBodies(canvas, st, cam)
		_, err = fmt.Print(export.CanvasToSVG(canvas, 4))
		return err
	}
	_, err = fmt.Print(export.BodiesSVG(st, svgWidth, svgHeight))
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tBODIES\tBACKEND\tLAYOUT\tG-INTERACTIONS/S\tCHECK")

	for _, run := range runs {
		check := "-"
		if run.Report != nil {
			check = string(run.Report.Mode)
			if run.Report.Passed {
				check += " ok"
			} else {
				check += " FAILED"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d/%d/%d\t%.3f\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Bodies,
			run.Backend,
			run.Layout.TileWidth, run.Layout.GroupSize, run.Layout.Fanout,
			run.Throughput,
			check,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	timings, err := st.LoadTimings(runID)
	if err != nil {
		return err
	}
	if len(timings) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("bodies: %d\n", meta.Bodies)
	fmt.Printf("iterations: %d\n\n", len(timings))

	ms := make([]float64, len(timings))
	for i, t := range timings {
		ms[i] = t * 1e3
	}

	graph := asciigraph.Plot(ms,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("iteration time (ms)"),
	)
	fmt.Println(graph)
	fmt.Printf("\n%d Bodies: average %0.3f Billion Interactions / second\n", meta.Bodies, meta.Throughput)

	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBODIES\tITERATIONS\tBACKEND\tTILE\tGROUP\tFANOUT\tCHECK")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		check := "accuracy"
		if p.Assess {
			check = "performance"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%d\t%d\t%s\n",
			name, p.NumBodies(), p.Iterations, p.Backend,
			p.Layout.TileWidth, p.Layout.GroupSize, p.Layout.Fanout, check)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	backend, err := compute.NewBackend(cfg.Backend, cfg.ComputeLayout())
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	initial := initialBodies(cfg)
	m := viz.NewModel(sim.New(backend), initial, cfg.Dt, metrics.Default(initial.Len()))
	return viz.Run(m)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	return gui.Run(initialBodies(cfg), gui.Options{
		Backend: cfg.Backend,
		Layout:  cfg.ComputeLayout(),
		Dt:      cfg.Dt,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	backend, err := compute.NewBackend(cfg.Backend, cfg.ComputeLayout())
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	srv := stream.NewServer(sim.New(backend), initialBodies(cfg), cfg.Dt, serveInterval)
	httpServer := &http.Server{Addr: serveAddr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	defer func() { <-done }()

	fmt.Printf("streaming %d bodies on %s at ws://%s/ws\n", cfg.NumBodies(), backend.Name(), serveAddr)

	select {
	case err := <-errc:
		stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
