package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/duckbridge/internal/config"
	"github.com/leapstack-labs/duckbridge/internal/env"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
	"github.com/leapstack-labs/duckbridge/internal/state"
)

// runResult is one row of the run summary.
type runResult struct {
	Kind     state.OperationKind
	Plugin   string
	Relation string
	Err      error
	Duration time.Duration
}

func newRunCommand() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load all configured sources and run all exports",
		Long: `Load every configured source through its plugin, then run every
configured export. Sources load concurrently; exports run in order.`,
		Example: `  # Run with the project's duckbridge.yaml
  duckbridge run

  # Run with an explicit config and higher load concurrency
  duckbridge run --config ./etc/duckbridge.yaml --jobs 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd.Context(), jobs)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Maximum number of concurrent source loads")

	return cmd
}

func runRun(ctx context.Context, jobs int) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Target.Validate(); err != nil {
		return err
	}

	defs := make([]plugin.Def, 0, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		defs = append(defs, p.ToDef())
	}
	registry, err := plugin.NewRegistry(defs, logger)
	if err != nil {
		return err
	}

	environment := env.New(env.Config{
		Engine:   cfg.Target.Engine,
		DB:       cfg.Target.ToEngineConfig(),
		KeepOpen: cfg.Target.KeepOpen,
	}, registry, logger)
	defer func() { _ = environment.Close() }()

	store, err := openStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runID, err := store.BeginRun()
	if err != nil {
		return err
	}

	startTime := time.Now()

	var (
		resultsMu sync.Mutex
		results   []runResult
	)
	record := func(kind state.OperationKind, pluginName, relation string, opErr error, d time.Duration) {
		resultsMu.Lock()
		results = append(results, runResult{Kind: kind, Plugin: pluginName, Relation: relation, Err: opErr, Duration: d})
		resultsMu.Unlock()
	}

	// Phase 1: load sources concurrently. There is no ordering guarantee
	// between loads of different relations.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, src := range cfg.Sources {
		g.Go(func() error {
			op, opErr := store.BeginOperation(runID, state.OperationLoad, src.Plugin, src.ToSourceConfig().TableName())
			if opErr != nil {
				return opErr
			}
			start := time.Now()
			loadErr := environment.LoadSource(gctx, src.Plugin, src.ToSourceConfig())
			record(state.OperationLoad, src.Plugin, src.ToSourceConfig().TableName(), loadErr, time.Since(start))
			completeOperation(store, op.ID, loadErr)
			return loadErr
		})
	}
	runErr := g.Wait()

	// Phase 2: exports run in declaration order, only after all loads
	// succeeded (exports may reference loaded sources).
	if runErr == nil {
		for _, exp := range cfg.Exports {
			target := exp.ToTargetConfig()
			op, opErr := store.BeginOperation(runID, state.OperationStore, exp.Plugin, target.TableName())
			if opErr != nil {
				runErr = opErr
				break
			}
			start := time.Now()
			storeErr := environment.StoreRelation(ctx, exp.Plugin, target)
			record(state.OperationStore, exp.Plugin, target.TableName(), storeErr, time.Since(start))
			completeOperation(store, op.ID, storeErr)
			if storeErr != nil {
				runErr = storeErr
				break
			}
		}
	}

	if err := store.CompleteRun(runID); err != nil {
		logger.Warn("failed to complete run record", "error", err)
	}

	renderResults(results)
	fmt.Printf("Completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	return runErr
}

// loadConfig resolves the config file from the flag or the project root.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root := config.FindProjectRoot(cwd)
	if root == "" {
		return nil, fmt.Errorf("no %s found; run from a project directory or pass --config", config.ConfigFileName)
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no %s found in %s", config.ConfigFileName, root)
	}
	return cfg, nil
}

// openStore opens and migrates the operation log.
func openStore(path string) (state.Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(nil)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func completeOperation(store state.Store, id string, opErr error) {
	status := state.OperationCompleted
	msg := ""
	if opErr != nil {
		status = state.OperationFailed
		msg = opErr.Error()
	}
	_ = store.CompleteOperation(id, status, msg)
}

// renderResults prints the run summary table.
func renderResults(results []runResult) {
	if len(results) == 0 {
		fmt.Println("Nothing to do")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Kind", "Plugin", "Relation", "Status", "Duration"})
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		t.AppendRow(table.Row{r.Kind, r.Plugin, r.Relation, status, r.Duration.Round(time.Millisecond)})
	}
	t.Render()
}
