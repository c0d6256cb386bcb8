package cmd

import (
	"github.com/spf13/cobra"

	"github.com/catamtz3/cse444-simpledb/engine"
	"github.com/catamtz3/cse444-simpledb/repl"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Run an interactive console session",
		RunE:  replRun,
	}
)

func init() {
	simpledbCmd.AddCommand(replCmd)
}

func replRun(cmd *cobra.Command, args []string) error {
	eng, err := engine.Open(engineConfig())
	if err != nil {
		return err
	}

	repl.Interact(eng)
	return eng.Close()
}
