package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/botctl/internal/cmd"
	"github.com/felixgeelhaar/botctl/internal/exitcode"
	"github.com/felixgeelhaar/botctl/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			exitcode.Exit(exitcode.Interrupted)
		}

		ux.RenderError(os.Stderr, err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
