/*

Default simulation parameters.

The arbitrage search tolerance and iteration caps are configuration-driven
(overridable per sweep via environment variables) with the documented
defaults below.

*/

package config

const (
	// DefaultArbMinTrade is the smallest arbitrage trade considered, in
	// 18-decimal internal units. 1e12 is one millionth of a whole coin, the
	// same size as the marginal-price probe.
	DefaultArbMinTrade int64 = 1e12

	// DefaultArbTolerance is the bisection bracket width, in internal units,
	// below which the trade-size search stops refining.
	DefaultArbTolerance int64 = 1e12

	// DefaultArbMaxIterations caps the bisection steps per coin pair. 64
	// halvings resolve any bracket that fits in an int64 to a single unit.
	DefaultArbMaxIterations = 64

	// DefaultAnnualizationFactor assumes hourly data (24 * 365 periods per
	// year) when scaling returns and volatility.
	DefaultAnnualizationFactor = 8760.0
)

// Default sweep grid: a coarse spread of amplification and fee levels around
// the values live stableswap pools actually use.
var (
	// DefaultSweepAmps are effective amplification coefficients.
	DefaultSweepAmps = []uint64{100, 500, 1000, 2000}

	// DefaultSweepFees are swap fees at 1e10 precision (4e6 == 0.04%).
	DefaultSweepFees = []int64{1e6, 4e6, 1e7}

	// DefaultAdminFee is the share of each fee withheld from the pool, at
	// 1e10 precision. Half, matching common governance settings.
	DefaultAdminFee int64 = 5e9

	// DefaultPoolCoins and DefaultPoolDeposit shape the synthetic default
	// pool: DefaultPoolCoins coins with DefaultPoolDeposit whole units each.
	DefaultPoolCoins          = 3
	DefaultPoolDeposit uint64 = 1_000_000
)
