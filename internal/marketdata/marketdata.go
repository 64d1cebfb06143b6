/*

Market series construction: CSV loading for historical data handed over by an
external collector, and synthetic generators used for parameter studies and
tests.

CSV layout, one row per (timestamp, pair), header required:

	timestamp,base,quote,price,volume

timestamp is RFC3339, price quotes one base coin in quote coins, volume is an
optional signed 18-decimal integer (positive trades base into quote). Rows
must be grouped by timestamp in strictly increasing order.

*/

package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/types"
)

var (
	ErrInvalidRow    = errors.New("invalid series row")
	ErrInvalidHeader = errors.New("invalid series header")
)

var mdLogger = logger.GetForComponent("marketdata")

// LoadCSV reads a full market series from the given file.
func LoadCSV(id, path string) (types.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Series{}, fmt.Errorf("failed to open series file: %w", err)
	}
	defer f.Close()

	series, err := ReadCSV(id, f)
	if err != nil {
		return types.Series{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	mdLogger.Info().
		Str("series", id).
		Str("path", path).
		Int("snapshots", len(series.Snapshots)).
		Msg("Loaded market series")
	return series, nil
}

// ReadCSV parses a series from any reader. The ordering contract is enforced
// before the series is returned.
func ReadCSV(id string, r io.Reader) (types.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return types.Series{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if len(header) < 4 || header[0] != "timestamp" {
		return types.Series{}, fmt.Errorf("%w: expected timestamp,base,quote,price[,volume]", ErrInvalidHeader)
	}

	series := types.Series{ID: id}
	var current *types.Snapshot
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return types.Series{}, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}
		if len(row) < 4 {
			return types.Series{}, fmt.Errorf("%w: line %d: need at least 4 fields", ErrInvalidRow, line)
		}

		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return types.Series{}, fmt.Errorf("%w: line %d: bad timestamp: %v", ErrInvalidRow, line, err)
		}
		base, err := strconv.Atoi(row[1])
		if err != nil {
			return types.Series{}, fmt.Errorf("%w: line %d: bad base index: %v", ErrInvalidRow, line, err)
		}
		quote, err := strconv.Atoi(row[2])
		if err != nil {
			return types.Series{}, fmt.Errorf("%w: line %d: bad quote index: %v", ErrInvalidRow, line, err)
		}
		price, err := strconv.ParseFloat(row[3], 64)
		if err != nil || price <= 0 {
			return types.Series{}, fmt.Errorf("%w: line %d: price must be a positive number", ErrInvalidRow, line)
		}

		if current == nil || !current.Timestamp.Equal(ts) {
			series.Snapshots = append(series.Snapshots, types.Snapshot{
				Timestamp: ts,
				Prices:    make(map[types.Pair]float64),
				Volumes:   make(map[types.Pair]sdkmath.Int),
			})
			current = &series.Snapshots[len(series.Snapshots)-1]
		}
		pair := types.Pair{I: base, J: quote}
		current.Prices[pair] = price

		if len(row) >= 5 && row[4] != "" {
			vol, ok := sdkmath.NewIntFromString(row[4])
			if !ok {
				return types.Series{}, fmt.Errorf("%w: line %d: bad volume", ErrInvalidRow, line)
			}
			if !vol.IsZero() {
				current.Volumes[pair] = vol
			}
		}
	}

	if err := series.Validate(); err != nil {
		return types.Series{}, err
	}
	return series, nil
}

// FlatSeries generates a series of the given length where every pair trades
// at parity. Useful as a no-arbitrage baseline.
func FlatSeries(id string, coins, steps int, start time.Time, interval time.Duration) types.Series {
	return shockSeries(id, coins, steps, -1, 1.0, start, interval)
}

// PriceShockSeries generates a parity series where the price of coin 0
// (quoted in every other coin) is multiplied by shockFactor from shockStep
// onward. A factor above one makes coin 0 more valuable externally than the
// pool believes, creating an arbitrage opportunity.
func PriceShockSeries(id string, coins, steps, shockStep int, shockFactor float64, start time.Time, interval time.Duration) types.Series {
	return shockSeries(id, coins, steps, shockStep, shockFactor, start, interval)
}

func shockSeries(id string, coins, steps, shockStep int, shockFactor float64, start time.Time, interval time.Duration) types.Series {
	series := types.Series{ID: id}
	for s := 0; s < steps; s++ {
		snap := types.Snapshot{
			Timestamp: start.Add(time.Duration(s) * interval),
			Prices:    make(map[types.Pair]float64),
		}
		for i := 0; i < coins; i++ {
			for j := i + 1; j < coins; j++ {
				price := 1.0
				if i == 0 && shockStep >= 0 && s >= shockStep {
					price = shockFactor
				}
				snap.Prices[types.Pair{I: i, J: j}] = price
			}
		}
		series.Snapshots = append(series.Snapshots, snap)
	}
	return series
}
