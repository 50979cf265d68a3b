package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examcore/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "examcore",
	Short: "Exam practice engine",
	Long: "examcore grades practice answers, schedules reviews with SM-2 and builds " +
		"session queues that mix due items with the learner's weakest domains.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to examcore.yaml (default: ./examcore.yaml or $XDG_CONFIG_HOME/examcore)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database file or postgres URL (overrides store.dsn and EXAMCORE_DB)")
	rootCmd.PersistentFlags().String("catalog", "", "Path to the item catalog JSON file (overrides catalog.path)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the store DSN using the --db flag (highest
// priority), then store.dsn from config, then for SQLite the EXAMCORE_DB env
// var or the default XDG path.
func resolveDBPath(cmd *cobra.Command, driver, configured string) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = configured
	}
	if driver != store.DriverSQLite {
		return p, nil
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
