package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cyklon/internal/config"
	"cyklon/internal/events"
	"cyklon/internal/pool"
	"cyklon/internal/storage"
	"cyklon/internal/storage/memory"
	"cyklon/internal/storage/postgres"
)

// app bundles what every command needs once config has been resolved.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   storage.Store
	service *pool.Service
	closers []func()
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	accounting, err := pool.ParseAccounting(a.cfg.Accounting)
	if err != nil {
		return err
	}
	sqrtPrice, err := config.ParseSqrtPrice(a.cfg.DefaultSqrtPrice)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	sink, err := a.openSink(ctx)
	if err != nil {
		return err
	}

	a.service = pool.NewService(pool.Config{
		Accounting:         accounting,
		DefaultTickSpacing: a.cfg.DefaultTickSpacing,
		DefaultSqrtPrice:   sqrtPrice,
	}, store, sink, a.logger)
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	}
	if cfg.StateFile == "" {
		return memory.NewStore(), nil
	}
	store, err := memory.Open(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	return store, nil
}

func (a *app) openSink(ctx context.Context) (events.Sink, error) {
	var sinks events.MultiSink
	if a.cfg.EventsOut != "" {
		sinks = append(sinks, events.NewJsonlSink(a.cfg.EventsOut))
	}
	if a.cfg.RedisURL != "" {
		redisSink, err := events.NewRedisSink(ctx, a.cfg.RedisURL, a.cfg.RedisChannel, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisSink.Close() })
		sinks = append(sinks, redisSink)
	}
	if len(sinks) == 0 {
		return events.NopSink{}, nil
	}
	return sinks, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := config.ParseAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}
