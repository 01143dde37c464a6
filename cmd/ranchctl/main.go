package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mamadbah2/ranch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.RootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
