package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jweese001/threejs-ide/cmd/sketchctl/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := cmd.RootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
