package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "hackdojo",
	Short: "Learn Python one day at a time",
	Long:  "HackDojo: a terminal coding dojo. Work through daily Python lessons, earn belts and ask Sensei for help.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/hackdojo/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides HACKDOJO_DB env var)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(beltsCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(senseiCmd)
	rootCmd.AddCommand(parentCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config's store.path (which HACKDOJO_DB overrides), then the
// default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
