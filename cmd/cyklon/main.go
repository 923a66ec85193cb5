package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cyklon",
		Short:        "Concentrated-liquidity accounting engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("pg-dsn", "", "Postgres DSN; when empty the local state file is used")
	flags.String("state-file", "./data/state.json", "local state snapshot path")
	flags.String("events-out", "", "append LiquidityAdded events to this JSONL file")
	flags.String("redis-url", "", "publish LiquidityAdded events to this redis server")
	flags.String("redis-channel", "", "redis pub/sub channel for events")
	flags.String("accounting", "scalar", "pool liquidity accounting (scalar, tick)")
	flags.Int32("default-tick-spacing", 1, "tick spacing for pools created without one")
	flags.String("default-sqrt-price", "", "Q64.96 sqrt price for pools created without one (default 2^96)")

	root.AddCommand(
		newRegisterMintCmd(),
		newDepositCmd(),
		newBalanceCmd(),
		newInitPoolCmd(),
		newAddLiquidityCmd(),
		newQuoteCmd(),
		newShowPoolCmd(),
		newShowPositionCmd(),
		newReplayCmd(),
		newEventsCmd(),
		newMigrateCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
