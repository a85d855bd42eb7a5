package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cabinet_tracker/internal/cli"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "imagectl: %v\n", err)
		os.Exit(1)
	}
}
