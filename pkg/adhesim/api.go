package adhesim

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"adhesim/internal/config"
	"adhesim/internal/dish"
	"adhesim/internal/model"
	"adhesim/internal/stats"
	"adhesim/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "adhesim.db"

	// createdAtLayout has fixed width so run timestamps sort as strings.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool

	runsDir    string
	exportsDir string
}

type RunRequest struct {
	// Params defaults to config.Default() when nil.
	Params *config.Config
	Seed   int64
	// Steps and SampleInterval override the parameter file when positive.
	Steps          int
	SampleInterval int
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Steps        int
	Attempted    int
	Accepted     int
	Annihilated  int
	Adhesions    int
	Samples      int
	Final        stats.Summary
	Elapsed      time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunRef struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureInit(ctx)
}

func (c *Client) ensureInit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run simulates one dish for the requested number of Monte Carlo sweeps,
// records every non-empty interaction diff and periodic adhesion samples,
// and writes the run artifacts.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	params := config.Default()
	if req.Params != nil {
		params = *req.Params
	}
	if req.Steps < 0 || req.SampleInterval < 0 {
		return RunSummary{}, errors.New("steps and sample interval must be >= 0")
	}
	if req.Steps > 0 {
		params.MCS = req.Steps
	}
	if req.SampleInterval > 0 {
		params.SampleInterval = req.SampleInterval
	}
	if err := c.ensureInit(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	started := time.Now()

	d, err := dish.New(params, req.Seed, logger)
	if err != nil {
		return RunSummary{}, err
	}

	var (
		samples []model.AdhesionSample
		logs    []model.InteractionLog
		totals  dish.StepResult
	)
	if params.SampleInterval > 0 {
		samples = append(samples, d.Samples()...)
	}
	for i := 0; i < params.MCS; i++ {
		res, err := d.Step(ctx)
		if err != nil {
			return RunSummary{}, err
		}
		totals.Attempted += res.Attempted
		totals.Accepted += res.Accepted
		totals.Annihilated += res.Annihilated

		if len(res.Diff.Moves) > 0 || len(res.Diff.Removals) > 0 {
			logs = append(logs, model.InteractionLog{
				VersionedRecord: storage.Versioned(),
				RunID:           runID,
				Step:            res.Step,
				Moves:           res.Diff.Moves,
				Removals:        res.Diff.Removals,
			})
		}
		if params.SampleInterval > 0 && d.StepCount()%params.SampleInterval == 0 {
			samples = append(samples, d.Samples()...)
		}
	}

	final := stats.Summarize(d.Samples())
	digest, err := configDigest(params)
	if err != nil {
		return RunSummary{}, err
	}
	run := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		CreatedAtUTC:    started.UTC().Format(createdAtLayout),
		Seed:            req.Seed,
		Steps:           d.StepCount(),
		Cells:           len(d.Grid().Cells()),
		Adhesions:       d.Index().Len(),
		Accepted:        totals.Accepted,
		Attempted:       totals.Attempted,
		Annihilated:     totals.Annihilated,
		MeanSize:        final.MeanSize,
		MeanTension:     final.MeanTension,
		ConfigDigest:    digest,
	}

	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveInteractions(ctx, runID, logs); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveSamples(ctx, runID, samples); err != nil {
		return RunSummary{}, err
	}
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Run:     run,
		Config:  params,
		Samples: samples,
	})
	if err != nil {
		return RunSummary{}, err
	}

	elapsed := time.Since(started)
	logger.Info("run finished",
		"steps", run.Steps,
		"accepted", run.Accepted,
		"annihilated", run.Annihilated,
		"adhesions", run.Adhesions,
		"elapsed", elapsed,
	)
	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Steps:        run.Steps,
		Attempted:    run.Attempted,
		Accepted:     run.Accepted,
		Annihilated:  run.Annihilated,
		Adhesions:    run.Adhesions,
		Samples:      len(samples),
		Final:        final,
		Elapsed:      elapsed,
	}, nil
}

func configDigest(params config.Config) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(runs)
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

func (c *Client) Samples(ctx context.Context, ref RunRef) ([]model.AdhesionSample, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}
	samples, ok, err := c.store.GetSamples(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("samples not found for run id: %s", runID)
	}
	return samples, nil
}

func (c *Client) Interactions(ctx context.Context, ref RunRef) ([]model.InteractionLog, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}
	logs, ok, err := c.store.GetInteractions(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("interactions not found for run id: %s", runID)
	}
	return logs, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(ctx, RunRef{RunID: req.RunID, Latest: req.Latest})
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.ensureInit(ctx); err != nil {
		return "", err
	}
	if !ref.Latest {
		if ref.RunID == "" {
			return "", errors.New("run id or latest is required")
		}
		return ref.RunID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[len(runs)-1].ID, nil
}
