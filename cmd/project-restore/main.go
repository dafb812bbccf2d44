package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"keboola.io/project-restore/internal/apperrors"
	"keboola.io/project-restore/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if apperrors.IsUserError(err) {
			os.Exit(1) // operator can fix the input or the project
		}
		os.Exit(2)
	}
}
