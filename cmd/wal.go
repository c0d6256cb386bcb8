package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catamtz3/cse444-simpledb/wal"
)

var (
	walCmd = &cobra.Command{
		Use:   "wal",
		Short: "List the records in the write ahead log",
		RunE:  walRun,
	}
)

func init() {
	simpledbCmd.AddCommand(walCmd)
}

func walRun(cmd *cobra.Command, args []string) error {
	recs, err := wal.ReadLog(filepath.Join(dataDir, "simpledb.wal"))
	if err != nil {
		return err
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"tid", "page", "before", "after"})
	for _, rec := range recs {
		tw.Append([]string{
			fmt.Sprintf("%d", rec.TID),
			rec.PageID.String(),
			fmt.Sprintf("%d bytes", len(rec.Before)),
			fmt.Sprintf("%d bytes", len(rec.After)),
		})
	}
	tw.Render()
	fmt.Printf("(%d records)\n", len(recs))
	return nil
}
