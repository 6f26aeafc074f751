package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"datarescue-backend/orchestration"
)

func init() {
	rootCmd.AddCommand(modulesCmd)
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Lists the registered pipeline modules and their prerequisites.",
	Args:  cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable()
		t.AppendHeader(table.Row{"Module", "Prerequisite"})
		for _, entry := range orchestration.Entries() {
			prereq := entry.Prereq
			if prereq == "" {
				prereq = "(none, global run)"
			}
			t.AppendRow(table.Row{entry.Name, prereq})
		}
		t.Render()
	},
}
