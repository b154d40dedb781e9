package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyhours/tally/internal/repository"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := opts.requireDatabaseURL()
			if err != nil {
				return err
			}
			if err := repository.MigrateUp(dsn); err != nil {
				return err
			}
			return printVersion(cmd, dsn)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  "Roll back the given number of migrations. With --steps 0 every migration is rolled back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := opts.requireDatabaseURL()
			if err != nil {
				return err
			}
			if err := repository.MigrateDown(dsn, steps); err != nil {
				return err
			}
			return printVersion(cmd, dsn)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := opts.requireDatabaseURL()
			if err != nil {
				return err
			}
			return printVersion(cmd, dsn)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, dsn string) error {
	version, dirty, err := repository.MigrationVersion(dsn)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}
