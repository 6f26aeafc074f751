package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusNotesCmd)
}

var statusNotesCmd = &cobra.Command{
	Use:   "status-notes",
	Short: "Shows every record carrying status notes, e.g. surveyed catalog resources.",
	Args:  cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		records, err := store.ListWithStatusNotes(cmd.Context())
		if err != nil {
			fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"DRPID", "Status", "Source URL", "Notes"})
		for _, rec := range records {
			t.AppendRow(table.Row{rec.DRPID, rec.Status, rec.SourceURL, rec.StatusNotes})
		}
		t.Render()
	},
}
