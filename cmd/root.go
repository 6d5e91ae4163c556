package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/config"
	"github.com/abhisek/skillpath/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "skillpath",
	Short: "Adaptive skill estimation and question selection",
	Long: "skillpath estimates a learner's mastery of each skill, serves questions for the\n" +
		"weakest skill first and updates the estimates as answers come in.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides SKILLPATH_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SKILLPATH_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(learnersCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config (or SKILLPATH_CONFIG) and applies --db on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}
	return cfg, nil
}

// resolveDBPath returns the configured database path (--db flag first, then
// the config file, then SKILLPATH_DB) or the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// openStore loads the config and opens the event store.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, cfg, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, cfg, err
	}
	return st, cfg, nil
}
