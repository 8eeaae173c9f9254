package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// reindexCmd re-embeds every stored revision
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every stored revision",
	Long: `Re-embed every stored revision into the statute index.

Use this after changing the embedding model or restoring the chunk table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, lg, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer lg.Sync()
		defer a.Close()

		n, err := a.Indexer.Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("reindex stopped after %d revisions: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d revisions\n", n)
		return nil
	},
}

var failedLimit int

// failedJobsCmd lists exhausted index jobs
var failedJobsCmd = &cobra.Command{
	Use:   "failed-jobs",
	Short: "List index jobs that exhausted their attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, lg, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer lg.Sync()
		defer a.Close()

		jobs, err := a.Indexer.FailedJobs(cmd.Context(), failedLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JOB\tREVISION\tATTEMPTS\tERROR")
		for _, j := range jobs {
			msg := ""
			if j.ErrorMessage != nil {
				msg = *j.ErrorMessage
			}
			fmt.Fprintf(w, "%s\t%d\t%d/%d\t%s\n", j.ID, j.RevisionID, j.Attempts, j.MaxAttempts, msg)
		}
		return w.Flush()
	},
}

// retryJobCmd re-queues a failed index job
var retryJobCmd = &cobra.Command{
	Use:   "retry-job <job-id>",
	Short: "Re-queue a failed index job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
		a, lg, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer lg.Sync()
		defer a.Close()

		if err := a.Indexer.RetryJob(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %s re-queued\n", id)
		return nil
	},
}

// indexWorkerCmd runs the outbox worker in the foreground
var indexWorkerCmd = &cobra.Command{
	Use:   "index-worker",
	Short: "Process queued index jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, lg, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer lg.Sync()
		defer a.Close()

		lg.Info("index worker started", "poll_interval", a.Config.IndexPollInterval)
		return a.Indexer.Run(ctx)
	},
}

func init() {
	failedJobsCmd.Flags().IntVar(&failedLimit, "limit", 50, "maximum jobs to list")
}
