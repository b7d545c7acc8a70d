package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/app"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	return app.Run(e.screenDeps(ctxOf(cmd)))
}
