// Package cmd implements the sketchctl command tree: offline access to the
// analyze-resolve-build pipeline and headless sketch execution, for CI
// validation of bundled example sketches.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd builds the sketchctl command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sketchctl",
		Short:         "Inspect and run playground sketches offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(analyzeCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(runCmd())
	return root
}
