package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jweese001/threejs-ide/internal/analyzer"
	"github.com/jweese001/threejs-ide/internal/importmap"
	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/resolver"
)

func resolveCmd() *cobra.Command {
	var cdn string
	var registry bool

	cmd := &cobra.Command{
		Use:   "resolve <sketch.js>",
		Short: "Run the resolution pipeline and print the import map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			log := logging.NewDefault()
			opts := resolver.Options{PrimaryCDN: resolver.CDN(cdn)}
			if registry {
				opts.Registry = resolver.NewRegistry(resolver.DefaultRegistryConfig())
			}
			res := resolver.New(opts, log)

			refs := analyzer.Analyze(string(source))
			resolved := res.Resolve(cmd.Context(), refs)

			for _, w := range resolver.CheckConflicts(resolved) {
				color.New(color.FgYellow).Fprintln(os.Stderr, "warning: "+w)
			}
			for _, r := range resolved {
				if r.Status == resolver.StatusFailed {
					color.New(color.FgRed).Fprintf(os.Stderr, "failed: %s (%s)\n", r.Name, r.Reason)
				}
			}

			m := importmap.Build(resolved, true, log)
			if errs := importmap.Validate(m); len(errs) > 0 {
				for _, e := range errs {
					color.New(color.FgRed).Fprintln(os.Stderr, "invalid: "+e)
				}
				return fmt.Errorf("import map failed validation")
			}

			data, err := m.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&cdn, "cdn", "jsdelivr", "primary CDN (jsdelivr, unpkg, esm.sh, skypack)")
	cmd.Flags().BoolVar(&registry, "registry", false, "pin latest versions via the CDN metadata API")
	return cmd
}
