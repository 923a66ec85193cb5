package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cyklon/internal/batch"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply AddLiquidity requests from a JSONL file",
		RunE:  runReplay,
	}
	cmd.Flags().String("in", "", "input JSONL file of add-liquidity requests")
	cmd.Flags().Uint64("batch-size", 500, "lines per checkpointed chunk")
	cmd.Flags().Int("workers", 8, "concurrent positions per chunk")
	cmd.Flags().String("checkpoint", "./data/replay_checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpoint resume")
	cmd.Flags().String("errors", "./data/replay_errors.jsonl", "failed requests output (JSONL)")
	return cmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("in")
	if input == "" {
		return fmt.Errorf("--in is required")
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := batch.NewRunner(batch.RunConfig{
		BatchSize:         a.cfg.BatchSize,
		Workers:           a.cfg.Workers,
		CheckpointPath:    a.cfg.Checkpoint,
		CheckpointEnabled: a.cfg.CheckpointEnabled,
		ErrorsPath:        a.cfg.Errors,
	}, a.service, a.logger)

	summary, err := runner.Run(cmd.Context(), input)
	if err != nil {
		return err
	}
	a.logger.Info("replay complete",
		zap.String("input", input),
		zap.Uint64("from", summary.FromLine),
		zap.Uint64("to", summary.ToLine),
		zap.Uint64("succeeded", summary.Succeeded),
		zap.Uint64("failed", summary.Failed),
		zap.String("liquidity", summary.Liquidity.Dec()),
	)
	return nil
}
