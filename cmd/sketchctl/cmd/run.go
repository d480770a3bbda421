package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/pipeline"
	"github.com/jweese001/threejs-ide/internal/resolver"
	"github.com/jweese001/threejs-ide/internal/sandbox"
)

func runCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <sketch.js>",
		Short: "Execute a sketch headlessly, streaming its console output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			log := logging.NewDefault()
			origin := "sandbox://headless"

			runtime := sandbox.New(sandbox.Config{
				Origin:  origin,
				Timeout: timeout,
			}, log)
			defer runtime.Close()

			session := bridge.NewSession(runtime, bridge.Options{
				ExpectedOrigin: origin,
				Filter:         bridge.DefaultFilter(),
				Logger:         log,
			})

			failed := make(chan string, 1)
			session.OnEvent(func(ev bridge.Event) {
				switch ev.Type {
				case bridge.EventConsole:
					printConsole(ev.Console)
				case bridge.EventError:
					select {
					case failed <- ev.Error.Message:
					default:
					}
				}
			})

			svc := pipeline.New(resolver.New(resolver.Options{}, log), session, nil, log)

			go func() {
				for env := range runtime.Events() {
					session.HandleEnvelope(env)
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+5*time.Second)
			defer cancel()

			if _, err := svc.Run(ctx, string(source)); err != nil {
				return err
			}

			// the runtime processes the run on its own goroutine; give it
			// the execution window plus slack, then drain
			select {
			case msg := <-failed:
				return fmt.Errorf("sketch error: %s", msg)
			case <-time.After(timeout + 500*time.Millisecond):
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "execution time limit")
	return cmd
}

func printConsole(entry *bridge.ConsoleEvent) {
	line := ""
	for i, a := range entry.Args {
		if i > 0 {
			line += " "
		}
		line += a
	}
	switch entry.Level {
	case "error":
		color.Red(line)
	case "warn":
		color.Yellow(line)
	default:
		fmt.Println(line)
	}
}
