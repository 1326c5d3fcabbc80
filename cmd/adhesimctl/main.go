package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"adhesim/internal/stats"
	"adhesim/internal/storage"
	"adhesim/pkg/adhesim"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
	dbPath     = "adhesim.db"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "samples":
		return runSamples(ctx, args[1:])
	case "interactions":
		return runInteractions(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// storeFlags registers the flags shared by every subcommand that opens a
// client.
type storeFlags struct {
	kind    *string
	dbPath  *string
	runsDir *string
	verbose *bool
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:    fs.String("store", storage.DefaultStoreKind(), "store backend: "+storage.KindMemory+"|"+storage.KindSQLite),
		dbPath:  fs.String("db-path", dbPath, "sqlite database path"),
		runsDir: fs.String("runs-dir", runsDir, "run artifacts directory"),
		verbose: fs.Bool("v", false, "debug logging"),
	}
}

func (sf storeFlags) client() (*adhesim.Client, error) {
	return adhesim.New(adhesim.Options{
		StoreKind: *sf.kind,
		DBPath:    *sf.dbPath,
		RunsDir:   *sf.runsDir,
		Logger:    newLogger(*sf.verbose),
	})
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func wantJSON(forced bool) bool {
	if forced {
		return true
	}
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(value any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "initialized store=%s\n", *sf.kind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	configPath := fs.String("config", "", "optional run config JSON path")
	paramsPath := fs.String("params", "", "parameter file JSON path")
	seed := fs.Int64("seed", 1, "rng seed")
	mcs := fs.Int("mcs", 0, "Monte Carlo sweeps (0 uses the parameter file)")
	sampleInterval := fs.Int("sample-interval", 0, "sweeps between adhesion samples (0 uses the parameter file)")
	extension := fs.String("extension", "", "adhesion extension mechanism: lazy|sticky|mixed|random")
	selection := fs.String("selection", "", "displacement selection: uniform|gradient")
	yielding := fs.Bool("yielding", true, "remove target adhesions at a size-dependent cost")
	lambdaAct := fs.Float64("lambda-act", 0, "actin protrusion strength")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	rc, err := loadOrDefaultRunConfig(*configPath)
	if err != nil {
		return err
	}
	overrideFromFlags(&rc, setFlags, map[string]any{
		"params":          *paramsPath,
		"seed":            *seed,
		"mcs":             *mcs,
		"sample-interval": *sampleInterval,
		"extension":       *extension,
		"selection":       *selection,
		"yielding":        *yielding,
		"lambda-act":      *lambdaAct,
	})
	req, err := rc.request()
	if err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run_id=%s steps=%d attempted=%s accepted=%s annihilated=%s adhesions=%d mean_size=%.3f mean_tension=%.6f elapsed=%s\n",
		summary.RunID,
		summary.Steps,
		humanize.Comma(int64(summary.Attempted)),
		humanize.Comma(int64(summary.Accepted)),
		humanize.Comma(int64(summary.Annihilated)),
		summary.Adhesions,
		summary.Final.MeanSize,
		summary.Final.MeanTension,
		summary.Elapsed.Round(time.Millisecond),
	)
	fmt.Fprintf(stdout, "artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, adhesim.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if wantJSON(*jsonOut) {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSEED\tSTEPS\tACCEPTED\tADHESIONS\tMEAN SIZE")
	for _, r := range runs {
		created := r.CreatedAtUTC
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAtUTC); err == nil {
			created = humanize.Time(t)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\t%.3f\n",
			r.ID,
			created,
			r.Seed,
			r.Steps,
			humanize.Comma(int64(r.Accepted)),
			r.Adhesions,
			r.MeanSize,
		)
	}
	return tw.Flush()
}

func runSamples(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	summaryOnly := fs.Bool("summary", false, "print per-step summary statistics instead of samples")
	jsonOut := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	samples, err := client.Samples(ctx, adhesim.RunRef{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}

	if *summaryOnly {
		steps := stats.SummarizeBySteps(samples)
		if wantJSON(*jsonOut) {
			return writeJSON(steps)
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STEP\tCOUNT\tMEAN SIZE\tSTD SIZE\tMEAN TENSION\tMAX TENSION\tMEAN MYOSIN")
		for _, s := range steps {
			fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.6f\t%.6f\t%.4f\n",
				s.Step, s.Count, s.MeanSize, s.StdSize, s.MeanTension, s.MaxTension, s.MeanMyosin)
		}
		return tw.Flush()
	}

	if wantJSON(*jsonOut) {
		return writeJSON(samples)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tID\tX\tY\tSIZE\tTENSION\tMYOSIN")
	for _, s := range samples {
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.3f\t%.6f\t%.4f\n",
			s.Step, s.ID, s.Position.X, s.Position.Y, s.Size, s.Tension, s.Myosin)
	}
	return tw.Flush()
}

func runInteractions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("interactions", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	jsonOut := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	logs, err := client.Interactions(ctx, adhesim.RunRef{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if wantJSON(*jsonOut) {
		return writeJSON(logs)
	}
	for _, l := range logs {
		fmt.Fprintf(stdout, "step=%d moves=%s removals=%s\n",
			l.Step,
			humanize.Comma(int64(len(l.Moves))),
			humanize.Comma(int64(len(l.Removals))),
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, adhesim.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: adhesimctl <init|run|runs|samples|interactions|export> [flags]", msg)
}
