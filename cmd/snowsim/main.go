package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/experiment"
	"github.com/san-kum/snowsim/internal/export"
	"github.com/san-kum/snowsim/internal/gui"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/optim"
	"github.com/san-kum/snowsim/internal/render"
	"github.com/san-kum/snowsim/internal/storage"
	"github.com/san-kum/snowsim/internal/viz"
	"github.com/spf13/cobra"
)

const defaultPreset = "snowball"

var (
	dataDir    string
	debug      bool
	configFile string
	async      bool
	simTime    float64
	frameDt    float64
	baseDt     float64
	resScale   float64
	every      int
	imagesDir  string
	seed       int64
	cpuProfile string

	frameIdx  int
	metric    string
	outFile   string
	svgScale  float64
	plotNames []string
	benchRuns int
	tuneGrid  []string
	tuneBy    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "snowsim",
		Short:         "asynchronous MPM snow simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// same as `snowsim window snowball`
			return runWindow(cmd, []string{defaultPreset})
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".snowsim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write logs to <data>/logs/snowsim.log")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario headless and store the results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().IntVar(&every, "every", 1, "store particles every N frames")
	runCmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to file")

	windowCmd := &cobra.Command{
		Use:   "window [preset]",
		Short: "show a scenario in a raylib window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWindow,
	}
	addScenarioFlags(windowCmd)

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "show a scenario in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run metrics (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotNames, "metric", []string{"kinetic_energy", "mean_level", "updates"}, "metric columns to plot")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a stored frame or metric series as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&frameIdx, "frame", -1, "frame to export (-1 for the last)")
	exportSVGCmd.Flags().StringVar(&metric, "metric", "", "export this metric series instead of a frame")
	exportSVGCmd.Flags().Float64Var(&svgScale, "scale", 400, "pixels per domain unit")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and metrics as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios, materials and color schemes",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [preset]",
		Short: "print a preset as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpConfig,
	}
	configCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "compare async and sync stepping on a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	addScenarioFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchRuns, "runs", 1, "seeds per mode")
	benchCmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to file")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search scheduler settings for the cheapest stable run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneScenario,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "param", []string{"cfl=0.1,0.3,0.5"},
		"name=v1,v2,... (one of: "+strings.Join(optim.Tunables(), ", ")+")")
	tuneCmd.Flags().StringVar(&tuneBy, "minimize", "updates_per_frame", "metric to minimize")

	rootCmd.AddCommand(runCmd, windowCmd, liveCmd, listCmd, plotCmd, exportSVGCmd, exportJSONCmd, presetsCmd, configCmd, benchCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml), overrides the preset")
	cmd.Flags().BoolVar(&async, "async", true, "regional time stepping")
	cmd.Flags().Float64Var(&simTime, "time", 0, "simulation time in seconds")
	cmd.Flags().Float64Var(&frameDt, "frame-dt", 0, "frame interval in seconds")
	cmd.Flags().Float64Var(&baseDt, "base-dt", 0, "base time step in seconds")
	cmd.Flags().Float64Var(&resScale, "res-scale", 1, "grid resolution multiplier")
	cmd.Flags().StringVar(&imagesDir, "images", "", "write rendered frames as PNG into this directory")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
}

func setupLogging(debug bool) error {
	if !debug {
		log.SetOutput(io.Discard)
		return nil
	}
	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "snowsim.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

// loadScenario resolves the preset or config file, then applies the flags
// the user set explicitly.
func loadScenario(cmd *cobra.Command, args []string) (*config.Scenario, error) {
	var (
		sc  *config.Scenario
		err error
	)
	if configFile != "" {
		sc, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		name := defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		sc, err = config.GetPreset(name)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(config.ListPresets(), ", "))
		}
	}

	flags := cmd.Flags()
	if flags.Changed("async") {
		sc.Async = async
	}
	if flags.Changed("time") {
		sc.SimulationTime = simTime
	}
	if flags.Changed("frame-dt") {
		sc.FrameDt = frameDt
	}
	if flags.Changed("base-dt") {
		sc.BaseDeltaT = baseDt
	}
	if flags.Changed("res-scale") {
		sc.ScaleResolution(resScale)
	}
	if flags.Changed("seed") {
		sc.Seed = seed
	}
	if flags.Changed("images") {
		sc.Window.ShowImages = imagesDir != ""
		sc.Window.OutputDir = imagesDir
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	log.Printf("scenario %s: res=%v time=%g frame_dt=%g base_dt=%g async=%v",
		sc.Name, sc.Res, sc.SimulationTime, sc.FrameDt, sc.BaseDeltaT, sc.Async)
	return sc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func startProfile() (func(), error) {
	if cpuProfile == "" {
		return func() {}, nil
	}
	f, err := os.Create(cpuProfile)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.Build(sc)
	if err != nil {
		return err
	}
	exp.Simulator().SetLogger(log.Default())

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	rec, err := st.Begin(sc, every)
	if err != nil {
		return err
	}
	observers := []mpm.Observer{rec}

	if imagesDir != "" {
		fw, err := render.NewFrameWriter(imagesDir)
		if err != nil {
			return err
		}
		r := render.NewRenderer(sc.Window.Width, render.GetScheme(sc.Window.ColorScheme), sc.Window.LevelSetSupersampling)
		ls := exp.Simulator().LevelSet()
		observers = append(observers, mpm.ObserverFunc(func(info mpm.FrameInfo) {
			if _, err := fw.Write(info.Frame, r.Render(info.Snapshot(), ls)); err != nil {
				log.Printf("write frame %d: %v", info.Frame, err)
			}
		}))
	}

	stop, err := startProfile()
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (%dx%d, %.2fs, async=%v)...\n", sc.Name, sc.Res[0], sc.Res[1], sc.SimulationTime, sc.Async)
	result, runErr := exp.Run(ctx, observers...)
	if err := rec.Finish(result); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", rec.ID)
	fmt.Printf("frames: %d  substeps: %d  particle updates: %d\n", result.Frames, result.Steps, result.ParticleUpdates)
	fmt.Println("\nmetrics:")
	for _, name := range sortedMetricNames(result.Metrics) {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
	return nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.Build(sc)
	if err != nil {
		return err
	}
	exp.Simulator().SetLogger(log.Default())

	ctx, cancel := signalContext()
	defer cancel()

	w := gui.NewWindow(sc.Window.Width, exp.Simulator(), render.GetScheme(sc.Window.ColorScheme), gui.WindowOptions{
		LevelSetSupersampling: sc.Window.LevelSetSupersampling,
		ShowImages:            sc.Window.ShowImages,
		OutputDir:             sc.Window.OutputDir,
		Title:                 "snowsim :: " + sc.Name,
	})
	return w.Run(ctx)
}

func runLive(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.Build(sc)
	if err != nil {
		return err
	}

	if debug {
		f, err := tea.LogToFile(filepath.Join(dataDir, "logs", "snowsim.log"), "snowsim")
		if err != nil {
			return err
		}
		defer f.Close()
		exp.Simulator().SetLogger(log.Default())
	}

	ctx, cancel := signalContext()
	defer cancel()
	return viz.Run(ctx, exp.Simulator(), viz.Options{Title: sc.Name, Scheme: sc.Window.ColorScheme})
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tRES\tSIM TIME\tASYNC\tPARTICLES\tFRAMES\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%.2fs\t%v\t%d\t%d\t%.1fs\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Res[0], run.Res[1],
			run.SimulationTime,
			run.Async,
			run.Particles,
			run.Frames,
			run.ElapsedSeconds,
		)
	}

	return w.Flush()
}

// resolveRun returns the run named in args, or the newest stored run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	id, err := st.Latest()
	if err != nil {
		return "", fmt.Errorf("no run given and none stored: %w", err)
	}
	return id, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadMetrics(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s (async=%v)\n", meta.Preset, meta.Async)
	fmt.Printf("frames: %d\n\n", len(rows))

	for _, name := range plotNames {
		data, err := storage.Column(rows, name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(strings.ReplaceAll(name, "_", " ")+" vs frame"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	var svg string
	if metric != "" {
		rows, err := st.LoadMetrics(runID)
		if err != nil {
			return err
		}
		ys, err := storage.Column(rows, metric)
		if err != nil {
			return err
		}
		xs := make([]float64, len(rows))
		for i, r := range rows {
			xs[i] = r.Time
		}
		svg = export.SeriesToSVG(xs, ys, 800, 300, "#4a90d9")
	} else {
		sc, err := st.LoadScenario(runID)
		if err != nil {
			return err
		}
		exp, err := experiment.Build(sc)
		if err != nil {
			return err
		}
		snap, err := st.LoadFrame(runID, frameIdx)
		if err != nil {
			return err
		}
		svg = export.FrameToSVG(snap, exp.Simulator().LevelSet(), render.GetScheme(sc.Window.ColorScheme), svgScale)
	}

	w, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, svg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported %s to %s\n", runID, outFile)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	if err := st.ExportJSON(runID, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func listPresets(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()

	fmt.Println("presets:")
	for _, p := range reg.ListPresets() {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println("\nmaterials:")
	for _, m := range reg.ListMaterials() {
		desc, _ := reg.DescribeMaterial(m)
		fmt.Printf("  %-8s %s\n", m, desc)
	}
	fmt.Println("\nshapes:")
	for _, s := range reg.ListShapes() {
		fmt.Printf("  %s\n", s)
	}
	fmt.Println("\ncolor schemes:")
	for _, s := range reg.ListSchemes() {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func dumpConfig(cmd *cobra.Command, args []string) error {
	name := defaultPreset
	if len(args) > 0 {
		name = args[0]
	}
	sc, err := config.GetPreset(name)
	if err != nil {
		return err
	}
	if outFile != "" {
		if err := config.Save(outFile, sc); err != nil {
			return err
		}
		fmt.Printf("wrote %s to %s\n", name, outFile)
		return nil
	}
	data, err := sc.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func benchScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	runs := max(benchRuns, 1)

	asyncSc := sc.Clone()
	asyncSc.Async = true
	syncSc := sc.Clone()
	syncSc.Async = false

	scenarios := append(
		experiment.SeedVariants(asyncSc, runs, sc.Seed),
		experiment.SeedVariants(syncSc, runs, sc.Seed)...,
	)

	stop, err := startProfile()
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s (%dx%d, %.2fs, %d run(s) per mode)\n\n", sc.Name, sc.Res[0], sc.Res[1], sc.SimulationTime, runs)
	results, err := experiment.NewEnsemble(scenarios...).Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tSEED\tFRAMES\tSUBSTEPS\tUPDATES\tTIME\tUPDATES/SEC\tMEAN LEVEL")

	var updates [2]int64
	for i, res := range results {
		mode := 0
		name := "async"
		if i >= runs {
			mode, name = 1, "sync"
		}
		updates[mode] += res.ParticleUpdates
		rate := float64(res.ParticleUpdates) / max(res.Elapsed.Seconds(), 1e-9)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%v\t%.0f\t%.2f\n",
			name, scenarios[i].Seed, res.Frames, res.Steps, res.ParticleUpdates,
			res.Elapsed.Round(time.Millisecond), rate, res.Metrics["mean_level"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if updates[0] > 0 {
		fmt.Printf("\nsync/async particle updates: %.2fx\n", float64(updates[1])/float64(updates[0]))
	}
	return nil
}

func parseParam(spec string) (optim.Param, error) {
	name, list, ok := strings.Cut(spec, "=")
	if !ok {
		return optim.Param{}, fmt.Errorf("bad --param %q, want name=v1,v2", spec)
	}
	p := optim.Param{Name: strings.TrimSpace(name)}
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Param{}, fmt.Errorf("bad value in --param %q: %w", spec, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

func tuneScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	params := make([]optim.Param, 0, len(tuneGrid))
	for _, spec := range tuneGrid {
		p, err := parseParam(spec)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	search, err := optim.NewGridSearch(tuneBy, params...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("tuning %s, minimizing %s\n\n", sc.Name, tuneBy)
	best, trials, err := search.Search(ctx, sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMS\tVALUE\tSTATUS")
	for _, t := range trials {
		status := "ok"
		if t.Err != nil {
			status = t.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%.6g\t%s\n", formatParams(t.Params), t.Value, status)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nbest: %s (%s = %.6g)\n", formatParams(best.Params), tuneBy, best.Value)
	return nil
}

func formatParams(p map[string]float64) string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, p[name])
	}
	return strings.Join(parts, " ")
}

func sortedMetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
