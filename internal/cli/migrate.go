package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/remo/internal/repository/sqlite"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Move the database schema between versions. The server applies pending migrations on start; these commands are for inspecting and rolling back.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.Open(opts.dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			applied, err := db.MigrateUp(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %05d\n", v)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.Open(opts.dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			v, err := db.MigrateDown(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %05d\n", v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.Open(opts.dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			statuses, err := db.MigrationStatuses(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tFILE\tAPPLIED AT")
			for _, s := range statuses {
				applied := "pending"
				if s.Applied {
					applied = s.AppliedAt.UTC().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%05d\t%s\t%s\n", s.Version, s.Path, applied)
			}
			return tw.Flush()
		},
	})

	return cmd
}
