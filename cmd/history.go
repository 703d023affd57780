package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/hdon2xlsx/internal/history"
)

var historyFlags struct {
	limit int
	batch string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversions",
	Long:  `The history command lists conversions recorded in history.db_path, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("history is disabled; set history.db_path")
		}
		defer store.Close()

		var entries []history.Entry
		if historyFlags.batch != "" {
			entries, err = store.Batch(cmd.Context(), historyFlags.batch)
		} else {
			entries, err = store.Recent(cmd.Context(), historyFlags.limit)
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No conversions recorded.")
			return nil
		}
		renderHistory(entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().StringVar(&historyFlags.batch, "batch", "", "Show only the entries of one batch ID")
}

func renderHistory(entries []history.Entry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Batch", "Document", "Schema", "Rows", "Note", "Status"})
	table.SetAutoWrapText(false)
	for _, e := range entries {
		status := e.Status
		if e.Error != "" {
			status += ": " + e.Error
		}
		table.Append([]string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(e.BatchID),
			e.Name,
			e.Schema,
			strconv.Itoa(e.Rows),
			e.Note,
			status,
		})
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
