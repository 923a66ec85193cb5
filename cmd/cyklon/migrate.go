package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	m, ok := a.store.(migrator)
	if !ok {
		return fmt.Errorf("migrate requires --pg-dsn")
	}
	if err := m.Migrate(cmd.Context()); err != nil {
		return err
	}
	a.logger.Info("schema migrated")
	return nil
}
