// Package cli implements the ranchctl operator commands.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/ranch/internal/app"
	"github.com/mamadbah2/ranch/internal/config"
	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/service/sales"
	"github.com/mamadbah2/ranch/pkg/logger"
)

// SalesService is the part of the lifecycle manager the CLI uses.
type SalesService interface {
	ListSales(ctx context.Context, status models.SaleStatus) ([]sales.SaleDetail, error)
	ListAvailableLots(ctx context.Context) ([]models.LotSummary, error)
}

// Reporter summarizes and exports completed sales.
type Reporter interface {
	Summarize(ctx context.Context, start, end time.Time) (string, error)
	ExportCompletedSales(ctx context.Context, start, end time.Time) (int, error)
}

// Reconciler runs one finalization pass.
type Reconciler interface {
	RunOnce(ctx context.Context) (int, error)
}

// Runtime is what a command needs to do its work.
type Runtime struct {
	Sales      SalesService
	Reporting  Reporter
	Reconciler Reconciler
	Location   *time.Location
	Close      func()
}

// newRuntime connects to the configured store. Tests replace it.
var newRuntime = func(ctx context.Context, envFile string) (*Runtime, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, log.Named("ranchctl"))
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Sales:      a.Sales,
		Reporting:  a.Reporting,
		Reconciler: a.Scheduler,
		Location:   a.Location,
		Close: func() {
			a.Close(context.Background())
			_ = log.Sync()
		},
	}, nil
}

// RootCmd returns the ranchctl root command.
func RootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "ranchctl",
		Short: "Operate ranch sales from the command line",
		Long: `ranchctl runs maintenance tasks against the ranch sale store:
finalizing due sales, listing sales and lots, and exporting completed sales.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (defaults to ./.env when present)")

	runtime := func(cmd *cobra.Command) (*Runtime, error) {
		return newRuntime(cmd.Context(), envFile)
	}

	cmd.AddCommand(reconcileCmd(runtime))
	cmd.AddCommand(salesCmd(runtime))
	cmd.AddCommand(lotsCmd(runtime))

	return cmd
}

type runtimeFunc func(cmd *cobra.Command) (*Runtime, error)

func withRuntime(open runtimeFunc, fn func(cmd *cobra.Command, rt *Runtime) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		rt, err := open(cmd)
		if err != nil {
			return err
		}
		if rt.Close != nil {
			defer rt.Close()
		}
		return fn(cmd, rt)
	}
}
