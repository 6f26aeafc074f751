package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagYes bool

func init() {
	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Deletes every record and resets the DRPID counter.",
	Args:  cobra.MaximumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		if !flagYes {
			fmt.Printf("This deletes ALL records in %s. Type 'yes' to continue: ", store.Path())
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(line) != "yes" {
				fmt.Println("aborted")
				return
			}
		}

		if err := store.ClearAll(cmd.Context()); err != nil {
			fatal(err)
		}
		fmt.Println("all records cleared")
	},
}
