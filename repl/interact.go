package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/catamtz3/cse444-simpledb/engine"
)

const (
	historyFile = ".simpledb_history"
)

// Interact runs a console session over eng until exit or end of input.
func Interact(eng *engine.Engine) {
	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	r := NewRepl(eng, os.Stdout)
	for {
		s, err := line.Prompt("simpledb: ")
		if err != nil {
			break
		}
		line.AppendHistory(s)

		err = r.Run(s)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stdout, err)
		}
	}

	if f, err := os.Create(historyFile); err != nil {
		fmt.Fprintf(os.Stderr, "simpledb: error writing history file, %s: %s",
			historyFile, err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}
