package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"transcodetracker/internal/store"
)

var getCmd = &cobra.Command{
	Use:   "get <objectId>",
	Short: "Look up a job record by object key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := jobStore.GetByObjectID(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no record for %s", args[0])
			}
			return err
		}
		printRecord(rec)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <jobId>",
	Short: "Resolve job records from a MediaConvert job id",
	Long: `Resolve records through the jobId index. The index is eventually
consistent, so a record written moments ago may not appear yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := jobStore.QueryByJobID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No records found")
			return nil
		}
		printRecords(recs)
		return nil
	},
}

var listLimit int32

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List job records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRecords(cmd.Context())
	},
}

func init() {
	listCmd.Flags().Int32Var(&listLimit, "limit", 50, "maximum records to list")
}

func listRecords(ctx context.Context) error {
	recs, err := jobStore.List(ctx, listLimit)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No records found")
		return nil
	}
	printRecords(recs)
	return nil
}

func printRecords(recs []store.JobRecord) {
	fmt.Printf("%-40s %-26s %-12s %s\n", "OBJECT", "JOB", "STATUS", "UPDATED")
	fmt.Println("--------------------------------------------------------------------------------------------")
	for _, rec := range recs {
		fmt.Printf("%-40s %-26s %-12s %s\n", rec.ObjectID, rec.JobID, rec.Status, rec.UpdatedAt)
	}
}

func printRecord(rec store.JobRecord) {
	fmt.Printf("Object: %s\n", rec.ObjectID)
	fmt.Printf("  Job: %s\n", rec.JobID)
	fmt.Printf("  Status: %s\n", rec.Status)
	fmt.Printf("  Updated: %s\n", rec.UpdatedAt)
}
