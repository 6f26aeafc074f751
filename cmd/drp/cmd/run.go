package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datarescue-backend/datalumos"
	"datarescue-backend/inventory"
	"datarescue-backend/lib/telemetry"
	"datarescue-backend/orchestration"
	"datarescue-backend/report"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <module>",
	Short: "Runs the named pipeline module over the eligible records.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tel, err := telemetry.SetupFromEnv(ctx, "drp")
		if err != nil {
			fatal(err)
		}
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)

		store := openStore()
		defer store.Close()

		archive, err := datalumos.NewClient(cfg)
		if err != nil {
			fatal(err)
		}
		deps := orchestration.Deps{
			Store:    store,
			Reporter: report.New(store),
			Config:   cfg,
			Deposits: archive,
			Publish:  archive,
		}
		sheets, err := inventory.NewUpdater(ctx, cfg)
		if err != nil {
			fatal(err)
		}
		if sheets != nil {
			deps.Sheets = sheets
		}

		if err := orchestration.New(deps).Run(ctx, args[0]); err != nil {
			fatal(err)
		}
	},
}
