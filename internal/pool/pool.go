/*

Pool state machine for a stableswap pool.

Balances are stored in native units and scaled to 18-decimal internal units
through per-coin rates before any invariant math (rates default to 1e18 so
native and internal units coincide for standard pools). All trade amounts at
the API boundary are in internal units.

A pool is Empty while its liquidity supply is zero and Active afterwards.
Swaps never change the supply; deposits and withdrawals never change the
amplification or fee parameters.

*/

package pool

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/invariant"
	"github.com/convex-community/curvesim/internal/types"
)

var (
	ErrInvalidIndex          = errors.New("coin index out of range")
	ErrInvalidAmount         = errors.New("amount is invalid")
	ErrInvalidConfig         = errors.New("pool configuration is invalid")
	ErrZeroOutput            = errors.New("trade output is not positive")
	ErrEmptyPool             = errors.New("pool has no liquidity")
	ErrSlippageExceeded      = errors.New("output below caller minimum")
	ErrInsufficientLiquidity = errors.New("withdrawal exceeds pool supply")
)

// Pool owns the balances, fee parameters and liquidity supply of one
// simulated stableswap pool. It is not safe for concurrent use; each
// simulation run owns its own instance.
type Pool struct {
	n         int
	amp       uint64
	fee       sdkmath.Int // 1e10 precision
	adminFee  sdkmath.Int // 1e10 precision, share of fee
	balances  []sdkmath.Int // native units
	rates     []sdkmath.Int // 1e18 precision
	supply    sdkmath.Int
	adminPool []sdkmath.Int // withheld admin fees, internal units
}

// New builds a pool from its configuration. A pool seeded with positive
// balances starts Active with supply equal to its initial invariant.
func New(cfg types.PoolConfig) (*Pool, error) {
	n := len(cfg.InitialBalances)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least two coins, got %d", ErrInvalidConfig, n)
	}
	if cfg.Amp == 0 {
		return nil, fmt.Errorf("%w: amplification must be positive", ErrInvalidConfig)
	}
	if cfg.Fee < 0 || cfg.Fee >= fixedpoint.FeeDenominator.Int64() {
		return nil, fmt.Errorf("%w: fee %d outside [0, 1e10)", ErrInvalidConfig, cfg.Fee)
	}
	if cfg.AdminFee < 0 || cfg.AdminFee > fixedpoint.FeeDenominator.Int64() {
		return nil, fmt.Errorf("%w: admin fee %d outside [0, 1e10]", ErrInvalidConfig, cfg.AdminFee)
	}

	rates := cfg.Rates
	if rates == nil {
		rates = make([]sdkmath.Int, n)
		for i := range rates {
			rates[i] = fixedpoint.Precision
		}
	}
	if len(rates) != n {
		return nil, fmt.Errorf("%w: %d rates for %d coins", ErrInvalidConfig, len(rates), n)
	}

	p := &Pool{
		n:         n,
		amp:       cfg.Amp,
		fee:       sdkmath.NewInt(cfg.Fee),
		adminFee:  sdkmath.NewInt(cfg.AdminFee),
		balances:  make([]sdkmath.Int, n),
		rates:     fixedpoint.Clone(rates),
		supply:    sdkmath.ZeroInt(),
		adminPool: make([]sdkmath.Int, n),
	}
	for i, b := range cfg.InitialBalances {
		if b.IsNil() || b.IsNegative() {
			return nil, fmt.Errorf("%w: balance %d is negative or nil", ErrInvalidConfig, i)
		}
		p.balances[i] = fixedpoint.UnapplyRate(b, p.rates[i])
		p.adminPool[i] = sdkmath.ZeroInt()
	}

	if allPositive(p.balances) {
		d, err := invariant.SolveD(p.xp(), p.amp)
		if err != nil {
			return nil, err
		}
		p.supply = d
	}
	return p, nil
}

func allPositive(xs []sdkmath.Int) bool {
	for _, x := range xs {
		if !x.IsPositive() {
			return false
		}
	}
	return true
}

// N returns the number of coins.
func (p *Pool) N() int { return p.n }

// Amp returns the effective amplification coefficient.
func (p *Pool) Amp() uint64 { return p.amp }

// FeeRate returns the swap fee at 1e10 precision.
func (p *Pool) FeeRate() sdkmath.Int { return p.fee }

// Supply returns the current liquidity token supply.
func (p *Pool) Supply() sdkmath.Int { return p.supply }

// Balances returns a copy of the balances in internal 18-decimal units.
func (p *Pool) Balances() []sdkmath.Int {
	return p.xp()
}

// AdminBalances returns a copy of the withheld admin fees per coin.
func (p *Pool) AdminBalances() []sdkmath.Int {
	return fixedpoint.Clone(p.adminPool)
}

// Clone returns a deep copy, used by the arbitrage search to evaluate
// candidate trades without mutating live state.
func (p *Pool) Clone() *Pool {
	return &Pool{
		n:         p.n,
		amp:       p.amp,
		fee:       p.fee,
		adminFee:  p.adminFee,
		balances:  fixedpoint.Clone(p.balances),
		rates:     fixedpoint.Clone(p.rates),
		supply:    p.supply,
		adminPool: fixedpoint.Clone(p.adminPool),
	}
}

// xp scales native balances to internal units.
func (p *Pool) xp() []sdkmath.Int {
	out := make([]sdkmath.Int, p.n)
	for i, b := range p.balances {
		out[i] = fixedpoint.ApplyRate(b, p.rates[i])
	}
	return out
}

// D solves the invariant for the current balances.
func (p *Pool) D() (sdkmath.Int, error) {
	return invariant.SolveD(p.xp(), p.amp)
}

// VirtualPrice returns D scaled by the liquidity supply, 1e18 precision.
func (p *Pool) VirtualPrice() (sdkmath.Int, error) {
	if !p.supply.IsPositive() {
		return sdkmath.Int{}, ErrEmptyPool
	}
	d, err := p.D()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return fixedpoint.MulDiv(d, fixedpoint.Precision, p.supply), nil
}

// Exchange swaps dx internal units of coin i for coin j. It returns the
// output amount net of fee and the fee charged, both in internal units. The
// fee stays in the pool except for the admin share, which is withheld.
func (p *Pool) Exchange(i, j int, dx sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	if i == j || i < 0 || j < 0 || i >= p.n || j >= p.n {
		return sdkmath.Int{}, sdkmath.Int{}, ErrInvalidIndex
	}
	if dx.IsNil() || !dx.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("%w: input amount must be positive", ErrInvalidAmount)
	}

	xp := p.xp()
	x := xp[i].Add(dx)
	y, err := invariant.SolveY(i, j, x, xp, p.amp)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	// One base unit is withheld so integer rounding can never favor the
	// trader; the invariant is non-decreasing across every swap.
	dy := xp[j].Sub(y).SubRaw(1)
	fee := fixedpoint.FeeCut(dy, p.fee)
	if !dy.Sub(fee).IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroOutput
	}
	adminCut := fixedpoint.FeeCut(fee, p.adminFee)

	p.balances[i] = fixedpoint.UnapplyRate(x, p.rates[i])
	p.balances[j] = fixedpoint.UnapplyRate(xp[j].Sub(dy).Sub(adminCut).Add(fee), p.rates[j])
	p.adminPool[j] = p.adminPool[j].Add(adminCut)

	return dy.Sub(fee), fee, nil
}

// AddLiquidity deposits the given internal-unit amounts and mints liquidity
// proportional to invariant growth. Imbalanced deposits pay the standard
// fee * n / (4 * (n - 1)) charge on each coin's deviation from the ideal
// D-proportional balance; the first deposit into an empty pool pays no fee
// and mints the initial invariant.
func (p *Pool) AddLiquidity(amounts []sdkmath.Int) (sdkmath.Int, error) {
	if len(amounts) != p.n {
		return sdkmath.Int{}, fmt.Errorf("%w: %d amounts for %d coins", ErrInvalidAmount, len(amounts), p.n)
	}
	anyPositive := false
	for i, a := range amounts {
		if a.IsNil() || a.IsNegative() {
			return sdkmath.Int{}, fmt.Errorf("%w: amount %d is negative or nil", ErrInvalidAmount, i)
		}
		if a.IsPositive() {
			anyPositive = true
		}
	}
	if !anyPositive {
		return sdkmath.Int{}, fmt.Errorf("%w: all deposit amounts are zero", ErrInvalidAmount)
	}

	oldBalances := fixedpoint.Clone(p.balances)
	newBalances := fixedpoint.Clone(p.balances)
	for i, a := range amounts {
		newBalances[i] = newBalances[i].Add(fixedpoint.UnapplyRate(a, p.rates[i]))
	}

	d1, err := invariant.SolveD(p.scaled(newBalances), p.amp)
	if err != nil {
		return sdkmath.Int{}, err
	}

	// Empty -> Active: mint the initial invariant, no imbalance fee.
	if !p.supply.IsPositive() {
		p.balances = newBalances
		p.supply = d1
		return d1, nil
	}

	d0, err := invariant.SolveD(p.scaled(oldBalances), p.amp)
	if err != nil {
		return sdkmath.Int{}, err
	}

	imbalanceFee := p.fee.MulRaw(int64(p.n)).QuoRaw(int64(4 * (p.n - 1)))
	mintBalances := fixedpoint.Clone(newBalances)
	for i := range mintBalances {
		ideal := fixedpoint.MulDiv(d1, oldBalances[i], d0)
		diff := ideal.Sub(newBalances[i]).Abs()
		mintBalances[i] = mintBalances[i].Sub(fixedpoint.FeeCut(diff, imbalanceFee))
	}

	d2, err := invariant.SolveD(p.scaled(mintBalances), p.amp)
	if err != nil {
		return sdkmath.Int{}, err
	}

	minted := fixedpoint.MulDiv(p.supply, d2.Sub(d0), d0)
	p.balances = newBalances
	p.supply = p.supply.Add(minted)
	return minted, nil
}

// RemoveLiquidity burns amount liquidity tokens for a proportional share of
// every balance, returned in internal units. minAmounts, when non-nil, sets
// a per-coin lower bound.
func (p *Pool) RemoveLiquidity(amount sdkmath.Int, minAmounts []sdkmath.Int) ([]sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: burn amount must be positive", ErrInvalidAmount)
	}
	if amount.GT(p.supply) {
		return nil, ErrInsufficientLiquidity
	}
	if minAmounts != nil && len(minAmounts) != p.n {
		return nil, fmt.Errorf("%w: %d minimums for %d coins", ErrInvalidAmount, len(minAmounts), p.n)
	}

	outs := make([]sdkmath.Int, p.n)
	for i := range p.balances {
		native := fixedpoint.MulDiv(p.balances[i], amount, p.supply)
		outs[i] = fixedpoint.ApplyRate(native, p.rates[i])
		if minAmounts != nil && outs[i].LT(minAmounts[i]) {
			return nil, fmt.Errorf("%w: coin %d output %s below minimum %s",
				ErrSlippageExceeded, i, outs[i], minAmounts[i])
		}
	}
	for i := range p.balances {
		p.balances[i] = p.balances[i].Sub(fixedpoint.UnapplyRate(outs[i], p.rates[i]))
	}
	p.supply = p.supply.Sub(amount)
	return outs, nil
}

// CalcWithdrawOneCoin quotes a single-coin withdrawal of the given liquidity
// amount without mutating state. The fee is skewed by the coin's share of the
// pool so withdrawing the scarce coin pays more.
func (p *Pool) CalcWithdrawOneCoin(amount sdkmath.Int, i int) (sdkmath.Int, error) {
	if i < 0 || i >= p.n {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: burn amount must be positive", ErrInvalidAmount)
	}
	if !p.supply.IsPositive() {
		return sdkmath.Int{}, ErrEmptyPool
	}

	xp := p.xp()
	fee := sdkmath.ZeroInt()
	if p.fee.IsPositive() {
		fee = p.fee.Sub(fixedpoint.MulDiv(p.fee, xp[i], fixedpoint.Sum(xp))).AddRaw(5 * 1e5)
	}

	d0, err := invariant.SolveD(xp, p.amp)
	if err != nil {
		return sdkmath.Int{}, err
	}
	d1 := d0.Sub(fixedpoint.MulDiv(amount, d0, p.supply))
	y, err := invariant.SolveYFromD(i, xp, p.amp, d1)
	if err != nil {
		return sdkmath.Int{}, err
	}
	dy := xp[i].Sub(y)
	return dy.Sub(fixedpoint.FeeCut(dy, fee)), nil
}

// RemoveLiquidityOneCoin burns amount liquidity tokens for coin i only.
func (p *Pool) RemoveLiquidityOneCoin(amount sdkmath.Int, i int, minAmount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: burn amount must be positive", ErrInvalidAmount)
	}
	if amount.GT(p.supply) {
		return sdkmath.Int{}, ErrInsufficientLiquidity
	}
	dy, err := p.CalcWithdrawOneCoin(amount, i)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !minAmount.IsNil() && dy.LT(minAmount) {
		return sdkmath.Int{}, fmt.Errorf("%w: output %s below minimum %s", ErrSlippageExceeded, dy, minAmount)
	}
	p.balances[i] = p.balances[i].Sub(fixedpoint.UnapplyRate(dy, p.rates[i]))
	p.supply = p.supply.Sub(amount)
	return dy, nil
}

func (p *Pool) scaled(native []sdkmath.Int) []sdkmath.Int {
	out := make([]sdkmath.Int, p.n)
	for i, b := range native {
		out[i] = fixedpoint.ApplyRate(b, p.rates[i])
	}
	return out
}
