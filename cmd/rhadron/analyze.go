package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lpchscp/rhadron/internal/figure"
	"github.com/lpchscp/rhadron/internal/hits"
	"github.com/lpchscp/rhadron/internal/logging"
	"github.com/lpchscp/rhadron/internal/model"
	"github.com/lpchscp/rhadron/internal/stats"
)

const (
	hitsWindow         = 5
	defaultTopEnergies = 10
	// arrowSteps is the number of dots drawn along an R-hadron direction in the terminal view.
	arrowSteps = 40
)

var (
	analysisCfg = model.AnalysisConfig{GluinoMass: defaultGluinoMass}
	plotWidth   int
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an R-hadron hit table",
	}

	cmd.PersistentFlags().StringVar(&analysisCfg.HitsPath, "hits", "", "hit table CSV written by the hit analyzer")
	cmd.PersistentFlags().Float64Var(&analysisCfg.EnergyCut, "energy-cut", 0, "only count hits with energy above this value (GeV)")
	cmd.PersistentFlags().StringVar(&analysisCfg.SavePath, "save", "", "also save the figure to this PNG file")
	cmd.PersistentFlags().BoolVar(&analysisCfg.NoMuon, "no-muon", false, "drop muon chamber hits")
	cmd.PersistentFlags().BoolVar(&analysisCfg.NoECAL, "no-ecal", false, "drop ECAL hits")
	cmd.PersistentFlags().Float64Var(&analysisCfg.GluinoMass, "mass", defaultGluinoMass, "gluino mass in GeV")
	cmd.PersistentFlags().IntVar(&plotWidth, "width", 0, "plot width in columns (0 = terminal width)")

	cmd.AddCommand(newLocationsCmd())
	cmd.AddCommand(newNHitsCmd())
	cmd.AddCommand(newAssociateCmd())
	cmd.AddCommand(newVerticesCmd())
	cmd.AddCommand(newEnergiesCmd())
	cmd.AddCommand(newParticlesCmd())
	cmd.AddCommand(newMassMatrixCmd())
	cmd.AddCommand(newLowEnergyCmd())
	cmd.AddCommand(newXYCmd())
	cmd.AddCommand(newRZCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newFilterCmd())

	return cmd
}

// analysis is the state shared by every analyze subcommand.
type analysis struct {
	cfg    model.AnalysisConfig
	table  *hits.Table
	logger *zap.Logger
	out    io.Writer
}

func prepareAnalysis(cmd *cobra.Command) (*analysis, error) {
	fileCfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg := analysisCfg
	applyStringConfig(cmd, "hits", &cfg.HitsPath, fileCfg.Analysis.Hits)
	applyFloatConfig(cmd, "energy-cut", &cfg.EnergyCut, fileCfg.Analysis.EnergyCut)
	applyFloatConfig(cmd, "mass", &cfg.GluinoMass, fileCfg.Analysis.GluinoMass)

	t, err := loadHits(cfg.HitsPath, cfg.NoMuon, cfg.NoECAL)
	if err != nil {
		syncLogger(logger)
		return nil, err
	}
	log := logging.WithComponent(logger, "analyze")
	log.Debug("hit table loaded", zap.String("path", cfg.HitsPath), zap.Int("rows", t.Len()))
	return &analysis{cfg: cfg, table: t, logger: log, out: cmd.OutOrStdout()}, nil
}

// analysisRunE wraps fn with table loading and logger teardown.
func analysisRunE(fn func(cmd *cobra.Command, a *analysis) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := prepareAnalysis(cmd)
		if err != nil {
			return err
		}
		defer syncLogger(a.logger)
		return fn(cmd, a)
	}
}

func (a *analysis) saved(path string) {
	fmt.Fprintf(a.out, "Saved %s\n", path)
}

func newLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "Count ECAL hits per region",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			eb, ee, es := hits.HitLocations(a.table, a.cfg.EnergyCut)
			return stats.RenderLocations(a.out, eb, ee, es, a.cfg.EnergyCut)
		}),
	}
}

func newNHitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nhits",
		Short: "Plot the number of hits per event",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			counts := hits.HitsPerEvent(a.table, a.cfg.EnergyCut)
			points := make([]hits.Point, len(counts))
			for i, c := range counts {
				if c == 4 {
					a.logger.Debug("event with four hits", zap.Int("event", i+1))
				}
				points[i] = hits.Point{X: float64(i + 1), Y: float64(c)}
			}
			if err := stats.RenderHitsPerEvent(a.out, counts, hitsWindow, plotWidth, 0); err != nil {
				return err
			}
			if a.cfg.SavePath == "" || len(points) == 0 {
				return nil
			}
			if err := figure.SaveScatter(a.cfg.SavePath, points, figure.Labels{
				Title: fmt.Sprintf("Hits per event with energy > %g GeV", a.cfg.EnergyCut),
				X:     "Event",
				Y:     "Hits",
			}); err != nil {
				return err
			}
			a.saved(a.cfg.SavePath)
			return nil
		}),
	}
}

func newAssociateCmd() *cobra.Command {
	var maxDeltaPhi float64
	cmd := &cobra.Command{
		Use:   "associate",
		Short: "Count high-energy hits aligned with an R-hadron direction",
		Long: "Counts hits above the energy cut (1000 GeV unless --energy-cut is given) whose azimuth\n" +
			"lies within --max-dphi of either R-hadron's transverse momentum.",
		Args: cobra.NoArgs,
		RunE: analysisRunE(func(cmd *cobra.Command, a *analysis) error {
			cut := hits.DefaultAssociationEnergyCut
			if cmd.Flags().Changed("energy-cut") {
				cut = a.cfg.EnergyCut
			}
			assoc, err := hits.HitsAssociatedWithRHadron(a.table, cut, maxDeltaPhi)
			if err != nil {
				return fmt.Errorf("failed to associate hits: %w", err)
			}
			share := "-"
			if assoc.Hits > 0 {
				share = fmt.Sprintf("%.1f%%", 100*float64(assoc.FromRHadron)/float64(assoc.Hits))
			}
			fmt.Fprintf(a.out, "Hits with energy > %g GeV (|dphi| < %g)\n", cut, maxDeltaPhi)
			return stats.RenderTable(a.out, []string{"Hits", "From R-hadron", "Share"}, [][]string{
				{fmt.Sprint(assoc.Hits), fmt.Sprint(assoc.FromRHadron), share},
			}, map[int]bool{0: true, 1: true, 2: true})
		}),
	}
	cmd.Flags().Float64Var(&maxDeltaPhi, "max-dphi", hits.DefaultMaxDeltaPhi, "maximum azimuthal separation in radians")
	return cmd
}

func newVerticesCmd() *cobra.Command {
	var lo, hi float64
	cmd := &cobra.Command{
		Use:   "vertices",
		Short: "Tabulate parent/daughter interactions in an energy window",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			m, err := hits.InteractionMatrix(a.table, lo, hi)
			if err != nil {
				return fmt.Errorf("failed to build interaction matrix: %w", err)
			}
			title := fmt.Sprintf("Interactions with %g <= E <= %g GeV (%d hits)", lo, hi, m.Total())
			return stats.RenderMatrix(a.out, title, "Daughters \\ Parent", m)
		}),
	}
	cmd.Flags().Float64Var(&lo, "lo", 1800.97, "lower energy bound (GeV)")
	cmd.Flags().Float64Var(&hi, "hi", 1800.99, "upper energy bound (GeV)")
	return cmd
}

func newEnergiesCmd() *cobra.Command {
	var nonRHadron bool
	var top int
	cmd := &cobra.Command{
		Use:   "energies",
		Short: "Show the most frequent EB hit energies",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			eb := hits.OnlyDetectors(a.table, model.DetectorEB)
			kind := "R-hadron"
			if nonRHadron {
				eb = hits.NonRHadrons(eb)
				kind = "Non-R-hadron"
			} else {
				eb = hits.RHadrons(eb)
			}
			counts := hits.EnergyValueCounts(eb)
			title := fmt.Sprintf("%s energies in EB", kind)
			if err := stats.RenderValueCounts(a.out, title, "Energy [GeV]", counts, top); err != nil {
				return err
			}
			points := hits.EnergyPoints(counts)
			if err := stats.PlotScatter(a.out, "", scatterSeries("", points), stats.Axis{Log: true}, stats.Axis{}, plotWidth, 0); err != nil {
				return err
			}
			if a.cfg.SavePath == "" || len(points) == 0 {
				return nil
			}
			if err := figure.SaveScatter(a.cfg.SavePath, points, figure.Labels{
				Title: title,
				X:     "Energy [GeV]",
				Y:     "Frequency",
				LogX:  true,
			}); err != nil {
				return err
			}
			a.saved(a.cfg.SavePath)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&nonRHadron, "non-rhadron", false, "show hits not left by R-hadrons")
	cmd.Flags().IntVar(&top, "top", defaultTopEnergies, "number of energies listed (0 = all)")
	return cmd
}

func newParticlesCmd() *cobra.Command {
	var energy float64
	cmd := &cobra.Command{
		Use:   "particles",
		Short: "Count EB R-hadron species depositing exactly one energy",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			counts := hits.ParticleCountsByEnergy(a.table, energy)
			title := fmt.Sprintf("R-hadrons with E = %g GeV", energy)
			return stats.RenderValueCounts(a.out, title, "PDG id", counts, 0)
		}),
	}
	cmd.Flags().Float64Var(&energy, "energy", 0.00510999, "deposited energy in GeV")
	return cmd
}

func newMassMatrixCmd() *cobra.Command {
	var lo, hi float64
	cmd := &cobra.Command{
		Use:   "mass-matrix",
		Short: "Tabulate EB hit energies against R-hadron mass",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			m, err := hits.MassEnergyMatrix(a.table, lo, hi)
			if err != nil {
				return fmt.Errorf("failed to build mass matrix: %w", err)
			}
			title := fmt.Sprintf("EB hits with %g <= E <= %g GeV by R-hadron mass", lo, hi)
			return stats.RenderMatrix(a.out, title, "Energy \\ Mass", m)
		}),
	}
	cmd.Flags().Float64Var(&lo, "lo", 1800, "lower energy bound (GeV)")
	cmd.Flags().Float64Var(&hi, "hi", 1802, "upper energy bound (GeV)")
	return cmd
}

func newLowEnergyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "low-energy",
		Short: "Histogram R-hadron hits at or below 1 GeV",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			h := hits.LowEnergyRHadronHistogram(a.table)
			const title = "R-hadron hits with E <= 1 GeV"
			if err := stats.RenderHistogram(a.out, title, h, plotWidth, 0, true); err != nil {
				return err
			}
			if a.cfg.SavePath == "" {
				return nil
			}
			if h.Entries() == 0 {
				a.logger.Warn("histogram is empty, not saving", zap.String("path", a.cfg.SavePath))
				return nil
			}
			if err := figure.SaveHistogram(a.cfg.SavePath, h, figure.Labels{
				Title: title,
				X:     "Energy [GeV]",
				Y:     "Hits",
				LogY:  true,
			}); err != nil {
				return err
			}
			a.saved(a.cfg.SavePath)
			return nil
		}),
	}
}

func newXYCmd() *cobra.Command {
	var event int
	var all bool
	cmd := &cobra.Command{
		Use:   "xy",
		Short: "Show the x-y hit display of an event",
		Long: "Shows hit locations of one event together with both R-hadron directions. With --all,\n" +
			"every event is saved as xyEvent<N>.png into the --save directory.",
		Args: cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			if all {
				return saveAllEventDisplays(a)
			}
			d, err := hits.EventDisplay(a.table, event, a.cfg.GluinoMass)
			if err != nil {
				return fmt.Errorf("failed to build event display: %w", err)
			}
			if err := renderEventDisplay(a.out, d); err != nil {
				return err
			}
			if a.cfg.SavePath == "" {
				return nil
			}
			if err := figure.SaveEventDisplay(a.cfg.SavePath, d); err != nil {
				return err
			}
			a.saved(a.cfg.SavePath)
			return nil
		}),
	}
	cmd.Flags().IntVar(&event, "event", 1, "event number")
	cmd.Flags().BoolVar(&all, "all", false, "save a display for every event")
	return cmd
}

func saveAllEventDisplays(a *analysis) error {
	dir := a.cfg.SavePath
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	displays, err := hits.EventDisplays(a.table, a.cfg.GluinoMass)
	if err != nil {
		return fmt.Errorf("failed to build event displays: %w", err)
	}
	for _, d := range displays {
		path := filepath.Join(dir, fmt.Sprintf("xyEvent%d.png", d.Event))
		if err := figure.SaveEventDisplay(path, d); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Saved %d event displays to %s\n", len(displays), dir)
	return nil
}

// renderEventDisplay draws the hits and both R-hadron directions, each direction as a dotted
// ray from the origin out to the outermost hit.
func renderEventDisplay(w io.Writer, d hits.Display) error {
	radius := 1.0
	for _, p := range d.Hits {
		radius = math.Max(radius, math.Hypot(p.X, p.Y))
	}
	series := scatterSeries("hits", d.Hits)
	for _, arrow := range d.Arrows {
		pt := math.Hypot(arrow.Px, arrow.Py)
		if pt == 0 {
			continue
		}
		ray := stats.ScatterSeries{Name: fmt.Sprintf("%s E_T=%.0f GeV", arrow.Label, arrow.ET)}
		for i := 0; i <= arrowSteps; i++ {
			s := radius * float64(i) / arrowSteps
			ray.Points = append(ray.Points, stats.XY{X: arrow.Px / pt * s, Y: arrow.Py / pt * s})
		}
		series = append(series, ray)
	}
	title := fmt.Sprintf("Event %d: CaloHit locations & energies", d.Event)
	return stats.PlotScatter(w, title, series, stats.Axis{}, stats.Axis{}, plotWidth, 0)
}

func newRZCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rz",
		Short: "Show the r-z hit display",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			points, err := hits.RZPoints(a.table, a.cfg.EnergyCut)
			if err != nil {
				return fmt.Errorf("failed to collect hit locations: %w", err)
			}
			title := fmt.Sprintf("CaloHit locations with energy > %g GeV", a.cfg.EnergyCut)
			if err := stats.PlotScatter(a.out, title, scatterSeries("", points), stats.Axis{}, stats.Axis{}, plotWidth, 0); err != nil {
				return err
			}
			if a.cfg.SavePath == "" || len(points) == 0 {
				return nil
			}
			if err := figure.SaveScatter(a.cfg.SavePath, points, figure.Labels{
				Title: title,
				X:     "z [cm]",
				Y:     "r [cm]",
			}); err != nil {
				return err
			}
			a.saved(a.cfg.SavePath)
			return nil
		}),
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize the hit table",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(_ *cobra.Command, a *analysis) error {
			r := stats.BuildReport(a.table, a.cfg.EnergyCut)
			fmt.Fprintf(a.out, "Hits with energy > %g GeV: %d (%d from R-hadrons) in %d events\n\n",
				r.EnergyCut, r.Rows, r.RHadronHits, len(r.HitsPerEvent))
			if err := stats.RenderDetectorCounts(a.out, r.Detectors); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			if err := stats.RenderLocations(a.out, r.EB, r.EE, r.ES, r.EnergyCut); err != nil {
				return err
			}
			if r.Association != nil {
				fmt.Fprintf(a.out, "\nAligned with an R-hadron: %d of %d\n", r.Association.FromRHadron, r.Association.Hits)
			}
			return nil
		}),
	}
}

func newFilterCmd() *cobra.Command {
	var (
		outPath    string
		detectors  []string
		exclude    []string
		rhadrons   bool
		nonRHadron bool
		event      int
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Write a filtered hit table",
		Args:  cobra.NoArgs,
		RunE: analysisRunE(func(cmd *cobra.Command, a *analysis) error {
			if rhadrons && nonRHadron {
				return fmt.Errorf("--rhadrons and --non-rhadron are mutually exclusive")
			}
			t := a.table
			if cmd.Flags().Changed("energy-cut") {
				t = hits.EnergyAbove(t, a.cfg.EnergyCut)
			}
			if len(detectors) > 0 {
				t = hits.OnlyDetectors(t, detectors...)
			}
			if len(exclude) > 0 {
				t = hits.ExcludeDetectors(t, exclude...)
			}
			if rhadrons {
				t = hits.RHadrons(t)
			}
			if nonRHadron {
				t = hits.NonRHadrons(t)
			}
			if event > 0 {
				t = hits.Event(t, event)
			}

			if err := writeTable(a.out, outPath, t); err != nil {
				return err
			}
			a.logger.Info("hits filtered", zap.Int("rows_in", a.table.Len()), zap.Int("rows_out", t.Len()))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV (default stdout)")
	cmd.Flags().StringSliceVar(&detectors, "detector", nil, "keep only these detector labels")
	cmd.Flags().StringSliceVar(&exclude, "exclude-detector", nil, "drop these detector labels")
	cmd.Flags().BoolVar(&rhadrons, "rhadrons", false, "keep only R-hadron hits")
	cmd.Flags().BoolVar(&nonRHadron, "non-rhadron", false, "keep only hits not left by R-hadrons")
	cmd.Flags().IntVar(&event, "event", 0, "keep only this event (0 = all)")
	return cmd
}

// writeTable writes t as CSV to path, or to stdout when path is empty.
func writeTable(stdout io.Writer, path string, t *hits.Table) (err error) {
	w := stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("failed to create %s: %w", path, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
		}()
		w = f
	}
	if err := t.Write(w); err != nil {
		return fmt.Errorf("failed to write hits: %w", err)
	}
	return nil
}

func scatterSeries(name string, points []hits.Point) []stats.ScatterSeries {
	xy := make([]stats.XY, len(points))
	for i, p := range points {
		xy[i] = stats.XY{X: p.X, Y: p.Y}
	}
	return []stats.ScatterSeries{{Name: name, Points: xy}}
}
