/*

Simulation runner: replays one market series against one pool configuration.

Steps execute strictly in time order. Each step applies the snapshot's
volume-implied trades, then the arbitrage policy, then records the resulting
pool state. A non-convergent solve fails the run; the records accumulated
before the failing step are preserved and flagged incomplete.

*/

package simulator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/convex-community/curvesim/internal/arbitrage"
	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/pool"
	"github.com/convex-community/curvesim/internal/types"
)

// Runner drives one (configuration x series) simulation. Runners are
// single-use; build a new one per run.
type Runner struct {
	cfg    types.PoolConfig
	series types.Series
	pool   *pool.Pool
	trader *arbitrage.Trader
	status types.RunStatus
	logger zerolog.Logger
}

// New validates the series, builds the run's own pool instance and leaves the
// runner in the Initialized state.
func New(cfg types.PoolConfig, series types.Series, params arbitrage.Parameters) (*Runner, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	p, err := pool.New(cfg)
	if err != nil {
		return nil, err
	}
	trader, err := arbitrage.NewTrader(params)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		series: series,
		pool:   p,
		trader: trader,
		status: types.RunStatusInitialized,
		logger: logger.GetForComponent("simulator"),
	}, nil
}

// Status returns the runner's current state.
func (r *Runner) Status() types.RunStatus { return r.status }

// Run replays the whole series and returns the recorded result. A failed step
// marks the run Failed; earlier records are kept and tagged incomplete.
func (r *Runner) Run() *types.RunResult {
	r.status = types.RunStatusRunning
	result := &types.RunResult{
		Key:      types.RunKey(r.cfg, r.series.ID),
		Config:   r.cfg,
		SeriesID: r.series.ID,
		Status:   types.RunStatusRunning,
	}

	for step, snap := range r.series.Snapshots {
		record, err := r.runStep(step, snap)
		if err != nil {
			r.status = types.RunStatusFailed
			result.Status = types.RunStatusFailed
			result.Incomplete = true
			result.Err = err.Error()
			r.logger.Warn().
				Str("run", result.Key).
				Int("step", step).
				Err(err).
				Msg("Run failed, preserving partial results")
			return result
		}
		result.Steps = append(result.Steps, record)
	}

	r.status = types.RunStatusCompleted
	result.Status = types.RunStatusCompleted
	return result
}

// runStep applies one snapshot's trades and records the post-trade state.
func (r *Runner) runStep(step int, snap types.Snapshot) (types.StepRecord, error) {
	receipts, err := r.applyVolume(snap)
	if err != nil {
		return types.StepRecord{}, fmt.Errorf("step %d volume trades: %w", step, err)
	}

	arbReceipts, err := r.trader.Step(r.pool, snap)
	if err != nil {
		return types.StepRecord{}, fmt.Errorf("step %d arbitrage: %w", step, err)
	}
	receipts = append(receipts, arbReceipts...)

	d, err := r.pool.D()
	if err != nil {
		return types.StepRecord{}, fmt.Errorf("step %d invariant: %w", step, err)
	}
	vp, err := r.pool.VirtualPrice()
	if err != nil {
		return types.StepRecord{}, fmt.Errorf("step %d virtual price: %w", step, err)
	}
	value, err := PoolValue(r.pool.Balances(), snap)
	if err != nil {
		return types.StepRecord{}, fmt.Errorf("step %d pool value: %w", step, err)
	}

	fees := make([]sdkmath.Int, r.pool.N())
	for i := range fees {
		fees[i] = sdkmath.ZeroInt()
	}
	for _, rc := range receipts {
		fees[rc.Out] = fees[rc.Out].Add(rc.Fee)
	}

	return types.StepRecord{
		Step:         step,
		Timestamp:    snap.Timestamp,
		Balances:     r.pool.Balances(),
		Invariant:    d,
		VirtualPrice: vp,
		Trades:       receipts,
		Fees:         fees,
		PoolValue:    value,
	}, nil
}

// applyVolume executes the snapshot's observed volumes as trades, in a fixed
// pair order. Trades the pool cannot absorb (zero output) are skipped;
// solver failures propagate.
func (r *Runner) applyVolume(snap types.Snapshot) ([]types.TradeReceipt, error) {
	if len(snap.Volumes) == 0 {
		return nil, nil
	}

	var receipts []types.TradeReceipt
	n := r.pool.N()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v, ok := snap.Volumes[types.Pair{I: i, J: j}]
			if !ok || v.IsNil() || v.IsZero() {
				continue
			}
			in, out, dx := i, j, v
			if v.IsNegative() {
				in, out, dx = j, i, v.Neg()
			}
			dy, fee, err := r.pool.Exchange(in, out, dx)
			if err != nil {
				if errors.Is(err, pool.ErrZeroOutput) || errors.Is(err, pool.ErrInvalidAmount) {
					r.logger.Debug().
						Int("in", in).
						Int("out", out).
						Str("dx", dx.String()).
						Msg("Skipping unexecutable volume trade")
					continue
				}
				return receipts, err
			}
			receipts = append(receipts, types.TradeReceipt{
				Kind:      types.TradeKindVolume,
				In:        in,
				Out:       out,
				AmountIn:  dx,
				AmountOut: dy,
				Fee:       fee,
			})
		}
	}
	return receipts, nil
}

// PoolValue prices 18-decimal balances at a snapshot's reference prices and
// returns the total in whole units of coin 0.
func PoolValue(balances []sdkmath.Int, snap types.Snapshot) (float64, error) {
	total := 0.0
	for i, b := range balances {
		amount, err := fixedpoint.IntToFloat(b, fixedpoint.BalanceDecimals)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			total += amount
			continue
		}
		price, ok := snap.Price(i, 0)
		if !ok {
			return 0, fmt.Errorf("%w: pair (%d, 0)", arbitrage.ErrMissingPrice, i)
		}
		total += amount * price
	}
	return total, nil
}
