package marketdata

import (
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convex-community/curvesim/internal/types"
)

const sampleCSV = `timestamp,base,quote,price,volume
2024-01-01T00:00:00Z,0,1,1.0002,
2024-01-01T00:00:00Z,0,2,0.9991,
2024-01-01T01:00:00Z,0,1,1.0005,25000000000000000000000
2024-01-01T01:00:00Z,0,2,0.9988,-1000000000000000000
`

func TestReadCSV(t *testing.T) {
	series, err := ReadCSV("sample", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "sample", series.ID)
	require.Len(t, series.Snapshots, 2)

	first := series.Snapshots[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 1.0002, first.Prices[types.Pair{I: 0, J: 1}])
	assert.Equal(t, 0.9991, first.Prices[types.Pair{I: 0, J: 2}])
	assert.Empty(t, first.Volumes)

	second := series.Snapshots[1]
	require.Len(t, second.Volumes, 2)
	assert.True(t, second.Volumes[types.Pair{I: 0, J: 1}].Equal(sdkmath.NewIntWithDecimal(25_000, 18)))
	assert.True(t, second.Volumes[types.Pair{I: 0, J: 2}].Equal(sdkmath.NewIntWithDecimal(1, 18).Neg()))
}

func TestReadCSVReciprocalLookup(t *testing.T) {
	series, err := ReadCSV("sample", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	p, ok := series.Snapshots[0].Price(1, 0)
	require.True(t, ok)
	assert.InDelta(t, 1/1.0002, p, 1e-12)
}

func TestReadCSVRejectsBadHeader(t *testing.T) {
	_, err := ReadCSV("bad", strings.NewReader("time,base,quote,price\n"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = ReadCSV("empty", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"bad timestamp": "timestamp,base,quote,price\nnot-a-time,0,1,1.0\n",
		"bad base":      "timestamp,base,quote,price\n2024-01-01T00:00:00Z,x,1,1.0\n",
		"zero price":    "timestamp,base,quote,price\n2024-01-01T00:00:00Z,0,1,0\n",
		"bad volume":    "timestamp,base,quote,price,volume\n2024-01-01T00:00:00Z,0,1,1.0,12.5\n",
		"short row":     "timestamp,base,quote,price\n2024-01-01T00:00:00Z,0,1\n",
	}
	for name, csvData := range cases {
		_, err := ReadCSV(name, strings.NewReader(csvData))
		assert.ErrorIs(t, err, ErrInvalidRow, name)
	}
}

func TestReadCSVRejectsUnorderedTimestamps(t *testing.T) {
	csvData := "timestamp,base,quote,price\n" +
		"2024-01-01T01:00:00Z,0,1,1.0\n" +
		"2024-01-01T00:00:00Z,0,1,1.0\n"
	_, err := ReadCSV("unordered", strings.NewReader(csvData))
	assert.ErrorIs(t, err, types.ErrSeriesUnordered)
}

func TestFlatSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := FlatSeries("flat", 3, 4, start, time.Hour)

	require.NoError(t, series.Validate())
	require.Len(t, series.Snapshots, 4)
	for s, snap := range series.Snapshots {
		assert.True(t, snap.Timestamp.Equal(start.Add(time.Duration(s)*time.Hour)))
		require.Len(t, snap.Prices, 3)
		for pair, price := range snap.Prices {
			assert.Equal(t, 1.0, price, "pair %+v", pair)
		}
	}
}

func TestPriceShockSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := PriceShockSeries("shock", 3, 6, 3, 1.08, start, time.Hour)

	require.NoError(t, series.Validate())
	require.Len(t, series.Snapshots, 6)

	for s, snap := range series.Snapshots {
		want := 1.0
		if s >= 3 {
			want = 1.08
		}
		assert.Equal(t, want, snap.Prices[types.Pair{I: 0, J: 1}], "step %d", s)
		assert.Equal(t, want, snap.Prices[types.Pair{I: 0, J: 2}], "step %d", s)
		// Pairs not involving coin 0 stay at parity through the shock.
		assert.Equal(t, 1.0, snap.Prices[types.Pair{I: 1, J: 2}], "step %d", s)
	}
}
