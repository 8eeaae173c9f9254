// Command legalctl administers the fact-checking backend: schema bootstrap,
// users, statute revisions, the index worker and one-off turns.
package main

import (
	"context"
	"fmt"
	"os"

	"legalcheck-backend/app"
	"legalcheck-backend/config"
	"legalcheck-backend/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "legalctl",
	Short: "Administer the labor-law fact-checking backend",
	Long: `legalctl manages the fact-checking backend.

Available commands:
  schema        - Create or upgrade the database schema
  create-user   - Create a user account
  add-revision  - Store a statute revision and queue it for indexing
  reindex       - Re-embed every stored revision
  failed-jobs   - List index jobs that exhausted their attempts
  retry-job     - Re-queue a failed index job
  index-worker  - Process queued index jobs until interrupted
  check         - Run one fact-check turn`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if envFile != "" {
			_ = godotenv.Load(envFile)
			return
		}
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(schemaCmd, createUserCmd, addRevisionCmd, reindexCmd,
		failedJobsCmd, retryJobCmd, indexWorkerCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*logger.Logger, error) {
	if verbose {
		return logger.New("dev")
	}
	return logger.New("prod")
}

// openApp builds the full application, including the Gemini client.
func openApp(ctx context.Context) (*app.App, *logger.Logger, error) {
	lg, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, config.Load(), lg)
	if err != nil {
		return nil, nil, err
	}
	return a, lg, nil
}
