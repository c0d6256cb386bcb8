package main

import (
	"fmt"
	"os"

	"github.com/catamtz3/cse444-simpledb/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
