package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cyklon/internal/config"
	"cyklon/internal/events"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read an event journal and check every log decodes to its event",
		RunE:  runEvents,
	}
	cmd.Flags().String("in", "", "event journal (JSONL); defaults to --events-out")
	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("in")
	if path == "" {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		path = cfg.EventsOut
	}
	if path == "" {
		return fmt.Errorf("--in is required")
	}

	records, err := events.ReadJsonl(path)
	if err != nil {
		return err
	}
	for i, record := range records {
		decoded, err := events.DecodeLog(record.Log)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if decoded != record.Event {
			return fmt.Errorf("record %d: log does not match event", i+1)
		}
	}
	return printJSON(cmd, records)
}
