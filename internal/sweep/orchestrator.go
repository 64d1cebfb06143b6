/*

Parameter sweep orchestrator.

Builds the Cartesian grid of pool configurations, runs one independent
simulation per (configuration x series) pair across a worker pool, and
collects results keyed by run. Runs share no mutable state, so the only
synchronization is around the result map; each key is written exactly once.

Cancellation is cooperative between runs: in-flight runs finish, queued runs
are skipped. One run's failure never aborts the others; failed runs appear in
the result alongside successes.

*/

package sweep

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/convex-community/curvesim/internal/arbitrage"
	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/metrics"
	"github.com/convex-community/curvesim/internal/simulator"
	"github.com/convex-community/curvesim/internal/types"
)

var ErrEmptyGrid = errors.New("sweep grid is empty")

// Config enumerates the sweep grid and runtime options.
type Config struct {
	// Amps and Fees span the grid; every (amp, fee) combination is run
	// against every series.
	Amps []uint64
	Fees []int64

	// AdminFee, InitialBalances and Rates are shared by all configurations.
	AdminFee        int64
	InitialBalances []sdkmath.Int
	Rates           []sdkmath.Int

	// Workers sizes the pool; zero means one per CPU.
	Workers int

	// Arb tunes the profitable-trade search for all runs.
	Arb arbitrage.Parameters

	// AnnualizationFactor matches the series frequency (8760 hourly).
	AnnualizationFactor float64
}

// Result maps run keys to their recorded series and summary statistics.
// Read-only once Run returns.
type Result struct {
	mu        sync.Mutex
	Runs      map[string]*types.RunResult
	Summaries map[string]metrics.Summary
}

// Keys returns the run keys in sorted order.
func (r *Result) Keys() []string {
	keys := make([]string, 0, len(r.Runs))
	for k := range r.Runs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Result) store(key string, run *types.RunResult, summary metrics.Summary, hasSummary bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Runs[key] = run
	if hasSummary {
		r.Summaries[key] = summary
	}
}

type job struct {
	cfg    types.PoolConfig
	series types.Series
}

// Run executes the full sweep and returns the collected results. Context
// cancellation skips not-yet-started runs; already queued results are kept.
func Run(ctx context.Context, cfg Config, series []types.Series) (*Result, error) {
	sweepLogger := logger.GetForComponent("sweep")

	jobs := buildJobs(cfg, series)
	if len(jobs) == 0 {
		return nil, ErrEmptyGrid
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	result := &Result{
		Runs:      make(map[string]*types.RunResult, len(jobs)),
		Summaries: make(map[string]metrics.Summary, len(jobs)),
	}

	jobCh := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobCh {
				runOne(ctx, cfg, jb, result, sweepLogger)
			}
		}()
	}

	sweepLogger.Info().
		Int("runs", len(jobs)).
		Int("workers", workers).
		Msg("Starting parameter sweep")

dispatch:
	for _, jb := range jobs {
		select {
		case <-ctx.Done():
			sweepLogger.Warn().Msg("Sweep cancelled, skipping remaining runs")
			break dispatch
		case jobCh <- jb:
		}
	}
	close(jobCh)
	wg.Wait()

	sweepLogger.Info().
		Int("collected", len(result.Runs)).
		Msg("Parameter sweep finished")
	return result, nil
}

// buildJobs expands the grid in deterministic order.
func buildJobs(cfg Config, series []types.Series) []job {
	var jobs []job
	for _, s := range series {
		for _, amp := range cfg.Amps {
			for _, fee := range cfg.Fees {
				jobs = append(jobs, job{
					cfg: types.PoolConfig{
						Amp:             amp,
						Fee:             fee,
						AdminFee:        cfg.AdminFee,
						InitialBalances: cfg.InitialBalances,
						Rates:           cfg.Rates,
					},
					series: s,
				})
			}
		}
	}
	return jobs
}

// runOne executes a single run and stores its result. Failures are recorded,
// never propagated; one bad configuration must not sink the sweep.
func runOne(ctx context.Context, cfg Config, jb job, result *Result, log zerolog.Logger) {
	key := types.RunKey(jb.cfg, jb.series.ID)

	select {
	case <-ctx.Done():
		return
	default:
	}

	runner, err := simulator.New(jb.cfg, jb.series, cfg.Arb)
	if err != nil {
		result.store(key, &types.RunResult{
			Key:        key,
			Config:     jb.cfg,
			SeriesID:   jb.series.ID,
			Status:     types.RunStatusFailed,
			Incomplete: true,
			Err:        err.Error(),
		}, metrics.Summary{}, false)
		log.Error().Str("run", key).Err(err).Msg("Run setup failed")
		return
	}

	run := runner.Run()
	summary, err := metrics.Summarize(run, jb.series, cfg.AnnualizationFactor)
	if err != nil {
		log.Warn().Str("run", key).Err(err).Msg("Run produced no summarizable series")
		result.store(key, run, metrics.Summary{}, false)
		return
	}
	result.store(key, run, summary, true)

	log.Info().
		Str("run", key).
		Str("status", string(run.Status)).
		Float64("final_value", summary.FinalValue).
		Float64("impermanent_loss", summary.ImpermanentLoss).
		Msg("Run collected")
}
