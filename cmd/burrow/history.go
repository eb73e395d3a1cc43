package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/cuemby/burrow/pkg/render"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded provisioning runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		workspace, _ := cmd.Flags().GetString("workspace")
		output, _ := cmd.Flags().GetString("output")

		if _, err := os.Stat(filepath.Join(cfg.DataDir, "burrow.db")); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No provisioning runs recorded")
			return nil
		}

		store, err := storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		var records []*types.ProvisionRecord
		if workspace != "" {
			records, err = store.ListRecordsByWorkspace(workspace)
		} else {
			records, err = store.ListRecords()
		}
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		switch output {
		case "json":
			return render.WriteJSON(cmd.OutOrStdout(), records)
		case "table":
			return writeHistoryTable(cmd, records)
		default:
			return fmt.Errorf("unsupported output format %q (want table or json)", output)
		}
	},
}

func init() {
	historyCmd.Flags().String("workspace", "", "Only show runs of this workspace")
	historyCmd.Flags().StringP("output", "o", "table", "Output format: table or json")
}

func writeHistoryTable(cmd *cobra.Command, records []*types.ProvisionRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No provisioning runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORKSPACE\tSTATUS\tMACHINES\tWARNINGS\tDURATION\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID[:min(8, len(r.ID))],
			r.WorkspaceID,
			r.Status,
			len(r.Machines),
			len(r.Warnings),
			r.Duration.Round(time.Microsecond),
			r.CreatedAt.Local().Format(time.RFC3339),
		)
	}
	return w.Flush()
}
