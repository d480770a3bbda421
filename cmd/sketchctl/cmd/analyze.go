package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jweese001/threejs-ide/internal/analyzer"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <sketch.js>",
		Short: "Print the static imports a sketch declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			refs := analyzer.Analyze(string(source))
			if len(refs) == 0 {
				fmt.Println("no imports")
				return nil
			}

			for _, ref := range refs {
				line := fmt.Sprintf("%-12s %s", ref.Kind, ref.Source)
				if len(ref.Bindings) > 0 {
					line += "  [" + strings.Join(ref.Bindings, ", ") + "]"
				}
				if ref.Version != "" {
					line += "  @" + ref.Version
				}
				if ref.IsURL {
					color.Yellow(line)
				} else {
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}
