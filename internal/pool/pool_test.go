package pool

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/types"
)

func balancedConfig(coins int, amp uint64, fee, adminFee int64) types.PoolConfig {
	balances := make([]sdkmath.Int, coins)
	for i := range balances {
		balances[i] = sdkmath.NewIntWithDecimal(1_000_000, 18)
	}
	return types.PoolConfig{
		Amp:             amp,
		Fee:             fee,
		AdminFee:        adminFee,
		InitialBalances: balances,
	}
}

func newTestPool(t *testing.T, cfg types.PoolConfig) *Pool {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestNewSeedsSupplyWithInvariant(t *testing.T) {
	p := newTestPool(t, balancedConfig(3, 2000, 4e6, 0))

	d, err := p.D()
	require.NoError(t, err)
	assert.True(t, p.Supply().Equal(d))

	vp, err := p.VirtualPrice()
	require.NoError(t, err)
	assert.True(t, vp.Equal(fixedpoint.Precision), "fresh pool virtual price must be exactly 1e18, got %s", vp)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := balancedConfig(3, 2000, 4e6, 0)

	bad := cfg
	bad.Amp = 0
	_, err := New(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad = cfg
	bad.Fee = 1e10
	_, err = New(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad = cfg
	bad.InitialBalances = bad.InitialBalances[:1]
	_, err = New(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExchangeInvariantNonDecreasing(t *testing.T) {
	for _, fee := range []int64{0, 4e6, 1e7} {
		p := newTestPool(t, balancedConfig(3, 2000, fee, 0))

		before, err := p.D()
		require.NoError(t, err)

		dx := sdkmath.NewIntWithDecimal(50_000, 18)
		dy, feePaid, err := p.Exchange(0, 1, dx)
		require.NoError(t, err)
		assert.True(t, dy.IsPositive())
		if fee > 0 {
			assert.True(t, feePaid.IsPositive())
		}

		after, err := p.D()
		require.NoError(t, err)
		assert.True(t, after.GTE(before), "fee=%d: D %s -> %s", fee, before, after)
	}
}

func TestExchangeDoesNotTouchSupply(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))
	supply := p.Supply()

	_, _, err := p.Exchange(0, 1, sdkmath.NewIntWithDecimal(1_000, 18))
	require.NoError(t, err)
	assert.True(t, p.Supply().Equal(supply))
}

func TestExchangeNearParityPricing(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	dx := sdkmath.NewIntWithDecimal(1_000, 18)
	dy, _, err := p.Exchange(0, 1, dx)
	require.NoError(t, err)

	// A balanced stableswap pool trades near parity; output must be a hair
	// under the input (curve slippage plus the 0.04% fee).
	assert.True(t, dy.LT(dx))
	assert.True(t, dy.GT(dx.MulRaw(99).QuoRaw(100)), "output %s implausibly low for input %s", dy, dx)
}

func TestExchangeAccruesAdminFees(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 5e9))

	_, feePaid, err := p.Exchange(0, 1, sdkmath.NewIntWithDecimal(10_000, 18))
	require.NoError(t, err)

	admin := p.AdminBalances()
	expected := feePaid.MulRaw(5e9).Quo(fixedpoint.FeeDenominator)
	assert.True(t, admin[1].Equal(expected), "admin accrual %s want %s", admin[1], expected)
	assert.True(t, admin[0].IsZero())
}

func TestExchangeInputContract(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	_, _, err := p.Exchange(0, 0, sdkmath.OneInt())
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, _, err = p.Exchange(0, 2, sdkmath.OneInt())
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, _, err = p.Exchange(0, 1, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestVirtualPriceGrowsWithFees(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	before, err := p.VirtualPrice()
	require.NoError(t, err)

	// Round-trip trade: the pool keeps both fees, LPs gain.
	dx := sdkmath.NewIntWithDecimal(100_000, 18)
	dy, _, err := p.Exchange(0, 1, dx)
	require.NoError(t, err)
	_, _, err = p.Exchange(1, 0, dy)
	require.NoError(t, err)

	after, err := p.VirtualPrice()
	require.NoError(t, err)
	assert.True(t, after.GT(before), "virtual price %s -> %s", before, after)
}

func TestDepositWithdrawRoundTripNoFee(t *testing.T) {
	p := newTestPool(t, balancedConfig(3, 2000, 0, 0))
	initial := p.Balances()

	deposit := make([]sdkmath.Int, 3)
	for i := range deposit {
		deposit[i] = sdkmath.NewIntWithDecimal(10_000, 18)
	}

	minted, err := p.AddLiquidity(deposit)
	require.NoError(t, err)
	assert.True(t, minted.IsPositive())

	outs, err := p.RemoveLiquidity(minted, nil)
	require.NoError(t, err)

	tolerance := sdkmath.NewInt(1_000) // dust from floor division, 1e-15 of a coin
	for i := range outs {
		assert.True(t, outs[i].Sub(deposit[i]).Abs().LTE(tolerance),
			"coin %d: withdrew %s for deposit %s", i, outs[i], deposit[i])
		assert.True(t, p.Balances()[i].Sub(initial[i]).Abs().LTE(tolerance))
	}
}

func TestAddLiquidityEmptyPool(t *testing.T) {
	cfg := balancedConfig(2, 200, 4e6, 0)
	cfg.InitialBalances = []sdkmath.Int{sdkmath.ZeroInt(), sdkmath.ZeroInt()}
	p := newTestPool(t, cfg)
	assert.True(t, p.Supply().IsZero())

	_, err := p.VirtualPrice()
	assert.ErrorIs(t, err, ErrEmptyPool)

	deposit := []sdkmath.Int{
		sdkmath.NewIntWithDecimal(500, 18),
		sdkmath.NewIntWithDecimal(500, 18),
	}
	minted, err := p.AddLiquidity(deposit)
	require.NoError(t, err)

	d, err := p.D()
	require.NoError(t, err)
	assert.True(t, minted.Equal(d), "first deposit mints the invariant")
	assert.True(t, p.Supply().Equal(d))
}

func TestAddLiquidityImbalanceCharged(t *testing.T) {
	balanced := newTestPool(t, balancedConfig(2, 200, 4e6, 0))
	skewed := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	even := []sdkmath.Int{
		sdkmath.NewIntWithDecimal(10_000, 18),
		sdkmath.NewIntWithDecimal(10_000, 18),
	}
	oneSided := []sdkmath.Int{
		sdkmath.NewIntWithDecimal(20_000, 18),
		sdkmath.ZeroInt(),
	}

	mintedEven, err := balanced.AddLiquidity(even)
	require.NoError(t, err)
	mintedSkewed, err := skewed.AddLiquidity(oneSided)
	require.NoError(t, err)

	// Same notional in, but the one-sided deposit pays the imbalance fee.
	assert.True(t, mintedSkewed.LT(mintedEven),
		"one-sided mint %s should trail balanced mint %s", mintedSkewed, mintedEven)
}

func TestAddLiquidityInputContract(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	_, err := p.AddLiquidity([]sdkmath.Int{sdkmath.ZeroInt(), sdkmath.ZeroInt()})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.AddLiquidity([]sdkmath.Int{sdkmath.OneInt()})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.AddLiquidity([]sdkmath.Int{sdkmath.OneInt(), sdkmath.NewInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRemoveLiquidityBounds(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	_, err := p.RemoveLiquidity(p.Supply().AddRaw(1), nil)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	// Minimums above the proportional share trip the slippage guard.
	mins := []sdkmath.Int{
		sdkmath.NewIntWithDecimal(2_000_000, 18),
		sdkmath.ZeroInt(),
	}
	_, err = p.RemoveLiquidity(p.Supply().QuoRaw(2), mins)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestRemoveLiquidityOneCoin(t *testing.T) {
	p := newTestPool(t, balancedConfig(3, 2000, 4e6, 0))
	supply := p.Supply()

	burn := supply.QuoRaw(100)
	quote, err := p.CalcWithdrawOneCoin(burn, 0)
	require.NoError(t, err)

	dy, err := p.RemoveLiquidityOneCoin(burn, 0, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.True(t, dy.Equal(quote), "quote %s vs execution %s", quote, dy)
	assert.True(t, p.Supply().Equal(supply.Sub(burn)))

	_, err = p.RemoveLiquidityOneCoin(p.Supply().AddRaw(1), 0, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = p.RemoveLiquidityOneCoin(burn, 1, sdkmath.NewIntWithDecimal(1_000_000, 18))
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestCloneIsIndependent(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))
	clone := p.Clone()

	_, _, err := clone.Exchange(0, 1, sdkmath.NewIntWithDecimal(1_000, 18))
	require.NoError(t, err)

	assert.True(t, p.Balances()[0].LT(clone.Balances()[0]))
	d1, err := p.D()
	require.NoError(t, err)
	d2, err := newTestPool(t, balancedConfig(2, 200, 4e6, 0)).D()
	require.NoError(t, err)
	assert.True(t, d1.Equal(d2), "original pool must be untouched")
}

func TestSpotPriceNearParity(t *testing.T) {
	p := newTestPool(t, balancedConfig(2, 200, 4e6, 0))

	price, err := p.SpotPrice(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, price, 1e-6)

	withFee, err := p.SpotPriceWithFee(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0-0.0004, withFee, 1e-6)
	assert.Less(t, withFee, price)
}
