package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/convex-community/curvesim/internal/arbitrage"
	"github.com/convex-community/curvesim/internal/config"
	"github.com/convex-community/curvesim/internal/fixedpoint"
	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/marketdata"
	"github.com/convex-community/curvesim/internal/metrics"
	"github.com/convex-community/curvesim/internal/state"
	"github.com/convex-community/curvesim/internal/sweep"
	"github.com/convex-community/curvesim/internal/types"
	"github.com/convex-community/curvesim/internal/web"
)

const defaultSweepName = "default_sweep"

// main is the entry point for the pool simulator.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Initialize(config.LogLevel, config.LogFile)
	log.Info().Msg("Stableswap pool simulator starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. Market series ---
	var series types.Series
	if config.SeriesCSV != "" {
		var err error
		series, err = marketdata.LoadCSV("csv", config.SeriesCSV)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load market series")
		}
	} else {
		// One synthetic week of hourly data with a 5% repricing of coin 0
		// midway through, exercising the arbitrage path.
		series = marketdata.PriceShockSeries(
			"synthetic_shock", config.DefaultPoolCoins, 168, 84, 1.05,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour,
		)
		log.Info().Int("steps", len(series.Snapshots)).Msg("Using synthetic shock series")
	}

	// --- 3. Sweep configuration ---
	balances := make([]sdkmath.Int, config.DefaultPoolCoins)
	for i := range balances {
		balances[i] = sdkmath.NewIntFromUint64(config.DefaultPoolDeposit).Mul(fixedpoint.Precision)
	}

	sweepCfg := sweep.Config{
		Amps:            parseUints(os.Getenv("SWEEP_AMPS"), config.DefaultSweepAmps),
		Fees:            parseInts(os.Getenv("SWEEP_FEES"), config.DefaultSweepFees),
		AdminFee:        config.DefaultAdminFee,
		InitialBalances: balances,
		Workers:         config.SweepWorkers,
		Arb: arbitrage.Parameters{
			MinTrade:      sdkmath.NewInt(config.ArbMinTrade),
			Tolerance:     sdkmath.NewInt(config.ArbTolerance),
			MaxIterations: config.ArbMaxIterations,
		},
		AnnualizationFactor: config.AnnualizationFactor,
	}

	// --- 4. Run the sweep ---
	result, err := sweep.Run(ctx, sweepCfg, []types.Series{series})
	if err != nil {
		log.Fatal().Err(err).Msg("Sweep failed to start")
	}

	for _, key := range result.Keys() {
		run := result.Runs[key]
		ev := log.Info().
			Str("run", key).
			Str("status", string(run.Status))
		if summary, ok := result.Summaries[key]; ok {
			ev = ev.
				Float64("final_value", summary.FinalValue).
				Float64("annualized_return", summary.AnnualizedReturn).
				Float64("annualized_volatility", summary.AnnualizedVolatility).
				Float64("impermanent_loss", summary.ImpermanentLoss).
				Float64("total_fees", summary.TotalFees)
		}
		ev.Msg("Sweep result")
	}

	// --- 5. Optional persistence ---
	if config.DBHost != "" {
		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}

		for _, key := range result.Keys() {
			run := result.Runs[key]
			var summary *metrics.Summary
			if s, ok := result.Summaries[key]; ok {
				summary = &s
			}
			if _, err := state.SaveRunResult(defaultSweepName, run, summary); err != nil {
				log.Error().Str("run", key).Err(err).Msg("Failed to persist run")
			}
		}
	}

	// --- 6. Optional results API ---
	if config.WebPort != "" {
		server := web.NewWebServer(config.WebPort, result)
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("Web server stopped")
			}
		}()
		log.Info().Str("port", config.WebPort).Msg("Serving sweep results; Ctrl-C to exit")
		<-ctx.Done()
	}

	log.Info().Msg("Done.")
}

// parseUints parses a comma-separated list, falling back to defaults.
func parseUints(raw string, fallback []uint64) []uint64 {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []uint64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Fatal().Str("value", part).Msg("Invalid value in sweep grid")
		}
		out = append(out, v)
	}
	return out
}

// parseInts parses a comma-separated list, falling back to defaults.
func parseInts(raw string, fallback []int64) []int64 {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Fatal().Str("value", part).Msg("Invalid value in sweep grid")
		}
		out = append(out, v)
	}
	return out
}
