package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

func init() {
	simpledbCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of SimpleDB",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version)
			},
		})
}
