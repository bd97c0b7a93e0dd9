package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/restaurant-pos/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		return database.Migrate(db)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List tables the database is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		missing, err := database.MissingTables(db)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(missing) == 0 {
			fmt.Fprintln(out, "schema is up to date")
			return nil
		}
		fmt.Fprintf(out, "%d tables missing:\n", len(missing))
		for _, t := range missing {
			fmt.Fprintf(out, "  - %s\n", t)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
