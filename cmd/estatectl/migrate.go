package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, log, err := connect(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			log.Info("Migrations applied", map[string]interface{}{
				"count": len(applied),
			})
			return nil
		},
	}
}
