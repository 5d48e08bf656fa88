// Package cli provides the command-line interface for transcodectl, an
// operational tool for inspecting the transcode jobs table.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"transcodetracker/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	tableName string

	// Store client shared by all subcommands
	jobStore *store.Dynamo
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "transcodectl",
	Short: "Inspect transcode job records",
	Long: `transcodectl reads the transcode jobs table directly: look up a
record by object key, resolve a record from a MediaConvert job id, or
list recent records.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if tableName == "" {
			tableName = os.Getenv("TRANSCODE_JOBS_TABLE")
		}
		if tableName == "" {
			return fmt.Errorf("table name required (--table or TRANSCODE_JOBS_TABLE)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS configuration: %w", err)
		}
		jobStore = store.NewDynamo(dynamodb.NewFromConfig(awsCfg), tableName, nil)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tableName, "table", "", "transcode jobs table name")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(listCmd)
}
