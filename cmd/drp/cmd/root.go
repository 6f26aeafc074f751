// Package cmd implements the drp command line interface: running pipeline
// stages and inspecting or resetting the record store.
package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"datarescue-backend/config"
	"datarescue-backend/lib/telemetry"
	"datarescue-backend/storage"
)

var (
	flagConfig   string
	flagDBPath   string
	flagNumRows  int
	flagStartRow int
	flagMinID    int64
	flagLogLevel string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "drp",
	Short: "drp runs the data rescue pipeline: sourcing, collection, upload, and publishing of at-risk government datasets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDBPath != "" {
			cfg.DBPath = flagDBPath
		}
		if cmd.Flags().Changed("num-rows") {
			cfg.NumRows = flagNumRows
		}
		if cmd.Flags().Changed("start-row") {
			cfg.StartRow = flagStartRow
		}
		if cmd.Flags().Changed("min-id") {
			cfg.MinDRPID = flagMinID
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}

		telemetry.InitSlogLevel(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.json5")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "", "path to the pipeline database")
	rootCmd.PersistentFlags().IntVar(&flagNumRows, "num-rows", 0, "max records to process, 0 = unlimited")
	rootCmd.PersistentFlags().IntVar(&flagStartRow, "start-row", 0, "skip records before this 1-based row")
	rootCmd.PersistentFlags().Int64Var(&flagMinID, "min-id", 0, "only process records with DRPID >= this")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "DEBUG, INFO, WARNING or ERROR")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func openStore() *storage.Store {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	return store
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
