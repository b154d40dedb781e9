package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	databaseURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tallyctl",
		Short:         "Operate a Tally deployment",
		Long:          "tallyctl applies database migrations and bootstraps administrator accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"),
		"PostgreSQL connection string (defaults to $DATABASE_URL)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newCreateAdminCmd(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the tallyctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tallyctl %s (%s)\n", version, commit)
		},
	})

	return cmd
}

func (o *rootOptions) requireDatabaseURL() (string, error) {
	if o.databaseURL == "" {
		return "", errors.New("DATABASE_URL is required (set it or pass --database-url)")
	}
	return o.databaseURL, nil
}
