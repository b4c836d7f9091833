package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/qflow/internal/category"
	"github.com/san-kum/qflow/internal/config"
	"github.com/san-kum/qflow/internal/defect"
	"github.com/san-kum/qflow/internal/field"
	"github.com/san-kum/qflow/internal/flow"
	"github.com/san-kum/qflow/internal/rg"
	"github.com/san-kum/qflow/internal/scenario"
	"github.com/san-kum/qflow/internal/storage"
	"github.com/san-kum/qflow/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string

	geoKind string
	gridN   int
	major   float64
	minor   float64
	radius  float64

	s0         float64
	charge     float64
	separation float64
	tilt       float64
	pitch      float64

	scaleStep  float64
	maxScale   float64
	tolerance  float64
	maxSteps   int
	window     int
	ricciBound float64
	naturality bool

	lawScale float64
	lawTol   float64

	exportPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qflow",
		Short: "renormalization-group flow lab for Q-tensor fields",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qflow", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a flow to a terminal state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFlow,
	}
	addScenarioFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a flow with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	lawsCmd := &cobra.Command{
		Use:   "laws [scenario]",
		Short: "check category and functor laws on a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkLaws,
	}
	addScenarioFlags(lawsCmd)
	lawsCmd.Flags().Float64Var(&lawScale, "scale", 0.05, "functor increment for law checks")
	lawsCmd.Flags().Float64Var(&lawTol, "tol", 0.05, "law tolerance")

	defectCmd := &cobra.Command{
		Use:   "defect [scenario]",
		Short: "extract and summarize defect structure",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showDefects,
	}
	addScenarioFlags(defectCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	traceCmd := &cobra.Command{
		Use:   "trace [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotTrace,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&exportPath, "out", "run.json", "output path")

	presetsCmd := &cobra.Command{
		Use:   "presets [geometry]",
		Short: "list presets for a geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for geometry: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenario.NewRegistry().List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, lawsCmd, defectCmd, listCmd, traceCmd, exportJSONCmd, presetsCmd, scenariosCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&geoKind, "geometry", "disk", "geometry kind (disk, torus, sphere, box)")
	cmd.Flags().IntVar(&gridN, "n", config.DefaultN, "lattice resolution per axis")
	cmd.Flags().Float64Var(&major, "major", 2.0, "torus major radius")
	cmd.Flags().Float64Var(&minor, "minor", 0.6, "torus minor radius")
	cmd.Flags().Float64Var(&radius, "radius", 1.0, "sphere radius")
	cmd.Flags().Float64Var(&s0, "s0", config.DefaultS0, "uniaxial order")
	cmd.Flags().Float64Var(&charge, "charge", 1, "defect winding")
	cmd.Flags().Float64Var(&separation, "separation", 0.5, "defect pair separation")
	cmd.Flags().Float64Var(&tilt, "tilt", 0.785398, "anchoring tilt (radians)")
	cmd.Flags().Float64Var(&pitch, "pitch", 6.283185, "twist wavenumber")
	cmd.Flags().Float64Var(&scaleStep, "scale-step", config.DefaultScaleStep, "RG increment per step")
	cmd.Flags().Float64Var(&maxScale, "max-scale", config.DefaultMaxScale, "scale horizon")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "convergence tolerance")
	cmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "step cap")
	cmd.Flags().IntVar(&window, "window", config.DefaultWindow, "settled steps for convergence")
	cmd.Flags().Float64Var(&ricciBound, "ricci-bound", config.DefaultRicciBound, "curvature stability bound")
	cmd.Flags().BoolVar(&naturality, "naturality", false, "record defect naturality deviation per step")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig merges preset, config file, and flags into one config.
// Flags override the file, the file overrides the preset.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(geoKind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(geoKind))
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

	if len(args) > 0 {
		cfg.Scenario = args[0]
	}
	if cmd.Flags().Changed("geometry") {
		cfg.Geometry.Kind = geoKind
	}
	if cmd.Flags().Changed("n") {
		cfg.Geometry.N = gridN
	}
	if cmd.Flags().Changed("major") {
		cfg.Geometry.Major = major
	}
	if cmd.Flags().Changed("minor") {
		cfg.Geometry.Minor = minor
	}
	if cmd.Flags().Changed("radius") {
		cfg.Geometry.Radius = radius
	}
	if cmd.Flags().Changed("s0") {
		cfg.Params.S0 = s0
	}
	if cmd.Flags().Changed("charge") {
		cfg.Params.Charge = charge
	}
	if cmd.Flags().Changed("separation") {
		cfg.Params.Separation = separation
	}
	if cmd.Flags().Changed("tilt") {
		cfg.Params.Tilt = tilt
	}
	if cmd.Flags().Changed("pitch") {
		cfg.Params.Pitch = pitch
	}
	if cmd.Flags().Changed("scale-step") {
		cfg.Flow.ScaleStep = scaleStep
	}
	if cmd.Flags().Changed("max-scale") {
		cfg.Flow.MaxScale = maxScale
	}
	if cmd.Flags().Changed("tol") {
		cfg.Flow.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.Flow.MaxSteps = maxSteps
	}
	if cmd.Flags().Changed("window") {
		cfg.Flow.Window = window
	}
	if cmd.Flags().Changed("ricci-bound") {
		cfg.RicciBound = ricciBound
	}
	if cmd.Flags().Changed("naturality") {
		cfg.Flow.TrackNaturality = naturality
	}
	return cfg, nil
}

// buildDriver assembles geometry, field, operator, and driver from config.
func buildDriver(cfg *config.Config) (*flow.Driver, *rg.Operator, error) {
	geo, err := cfg.BuildGeometry()
	if err != nil {
		return nil, nil, err
	}

	f, err := scenario.NewRegistry().Build(cfg.Scenario, geo, cfg.ScenarioParams())
	if err != nil {
		return nil, nil, err
	}

	obj, err := category.NewObject(geo, f, 0)
	if err != nil {
		return nil, nil, err
	}

	op := rg.NewOperator()
	if cfg.RicciBound > 0 {
		op.RicciBound = cfg.RicciBound
	}

	driver, err := flow.NewDriver(op, obj, cfg.FlowConfig())
	if err != nil {
		return nil, nil, err
	}
	return driver, op, nil
}

func runFlow(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	driver, _, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s on %s (n=%d)...\n", cfg.Scenario, cfg.Geometry.Kind, cfg.Geometry.N)
	start := time.Now()

	state, runErr := driver.Run(ctx)
	elapsed := time.Since(start)

	traj := driver.Trajectory()
	fp, fpErr := flow.AnalyzeFixedPoint(traj, cfg.Flow.ScaleStep)
	if fpErr != nil {
		fp = flow.FixedPoint{}
	}

	runID, err := st.Save(cfg.Geometry.Kind, cfg.Scenario, cfg.FlowConfig(), state, traj, fp)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("state: %s\n", state)
	fmt.Printf("steps: %d\n", driver.Steps())
	last := traj[len(traj)-1]
	fmt.Printf("final scale: %.4f\n", last.Scale)
	fmt.Printf("peak defect: %.4g\n", last.DefectMax)
	if cfg.Flow.TrackNaturality {
		fmt.Printf("naturality deviation: %.4g\n", last.Naturality)
	}
	if fp.Found {
		fmt.Printf("fixed point: contraction rate %.4f\n", fp.ContractionRate)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	driver, _, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s / %s", cfg.Geometry.Kind, cfg.Scenario)
	p := tea.NewProgram(tui.NewModel(driver, title))
	_, err = p.Run()
	return err
}

func checkLaws(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	driver, op, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	obj := driver.Current()

	fmt.Println("category laws:")
	f, err := op.Morphism(obj, lawScale)
	if err != nil {
		return err
	}
	if err := category.CheckIdentity(f, lawTol); err != nil {
		fmt.Printf("  identity: FAIL (%v)\n", err)
	} else {
		fmt.Println("  identity: ok")
	}
	g, err := op.Morphism(f.Codomain, lawScale)
	if err != nil {
		return err
	}
	h, err := op.Morphism(g.Codomain, lawScale)
	if err != nil {
		return err
	}
	if err := category.CheckAssociativity(h, g, f, lawTol); err != nil {
		fmt.Printf("  associativity: FAIL (%v)\n", err)
	} else {
		fmt.Println("  associativity: ok")
	}

	fmt.Println("functor laws:")
	if err := driver.CheckFunctorLaws(lawScale, lawTol); err != nil {
		fmt.Printf("  smoothing: FAIL (%v)\n", err)
	} else {
		fmt.Println("  smoothing: ok")
	}

	dev, err := defect.NaturalityDeviation(op, obj, lawScale)
	if err != nil {
		return err
	}
	fmt.Printf("defect naturality deviation: %.4g\n", dev)
	return nil
}

func showDefects(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	geo, err := cfg.BuildGeometry()
	if err != nil {
		return err
	}
	f, err := scenario.NewRegistry().Build(cfg.Scenario, geo, cfg.ScenarioParams())
	if err != nil {
		return err
	}

	mag, err := defect.Magnitude(f, geo)
	if err != nil {
		return err
	}
	peakIdx, peakVal := defect.Peak(mag)
	pt := geo.Points[peakIdx]

	fmt.Printf("scenario: %s on %s\n", cfg.Scenario, cfg.Geometry.Kind)
	fmt.Printf("peak defect: %.6g at (u=%.3f, v=%.3f)\n", peakVal, pt.U, pt.V)
	fmt.Printf("mean |Q|: %.4f  tr Q^2: %.4f  tr Q^3: %.4g\n", f.MeanNorm(), f.TraceQ2(), f.TraceQ3())

	eig, err := defect.Eigenstructure(f, geo, peakIdx)
	if err != nil {
		return err
	}
	fmt.Printf("spectral strength lambda: %.6g\n", eig.Lambda)
	if geo.Dim == 3 {
		fmt.Printf("defect axis: (%.3f, %.3f, %.3f)\n", eig.Axis[0], eig.Axis[1], eig.Axis[2])
	}

	regions := field.GridRegions(geo, 4)
	stats := f.Aggregate(geo, regions)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nREGION\tMEAN|Q|\tMAX|Q|\tORDER")
	for _, st := range stats {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", st.Label, st.MeanNorm, st.MaxNorm, st.Order)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGEOMETRY\tSCENARIO\tTIME\tSTEPS\tSTATE\tFIXED-POINT")
	for _, run := range runs {
		fixed := "-"
		if run.FixedPoint {
			fixed = fmt.Sprintf("rate %.3f", run.ContractionRate)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID, run.Geometry, run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps, run.State, fixed)
	}
	return w.Flush()
}

func plotTrace(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s on %s\n", meta.Scenario, meta.Geometry)
	fmt.Printf("samples: %d\n\n", len(rows))

	series := []struct {
		name string
		pick func(storage.TrajectoryRow) float64
	}{
		{"peak defect", func(r storage.TrajectoryRow) float64 { return r.DefectMax }},
		{"step delta", func(r storage.TrajectoryRow) float64 { return r.Delta }},
		{"mean |Q|", func(r storage.TrajectoryRow) float64 { return r.MeanNorm }},
	}
	for _, sr := range series {
		data := make([]float64, len(rows))
		for i, r := range rows {
			data[i] = sr.pick(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.ExportJSON(args[0], exportPath); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], exportPath)
	return nil
}
