package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Trigger AI analysis for stored entities",
}

var analyzeCommitCmd = &cobra.Command{
	Use:   "commit <id>",
	Short: "Analyze a stored commit",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 64)
		if err != nil {
			return errs.Wrap(err, "parse commit id")
		}

		jobID, err := deps.Analysis.EnqueueCommit(ctx, id, tracker.SystemActor())
		if err != nil {
			return errs.Wrap(err, "enqueue commit analysis")
		}
		deps.Analysis.Wait()

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "commit %d analyzed (job %s)\n", id, jobID); err != nil {
			return errs.Wrap(err, "write output")
		}
		return nil
	}),
}

var analyzePullCmd = &cobra.Command{
	Use:   "pull <id>",
	Short: "Analyze a stored pull request",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 64)
		if err != nil {
			return errs.Wrap(err, "parse pull request id")
		}

		jobID, err := deps.Analysis.EnqueuePullRequest(ctx, id, tracker.SystemActor())
		if err != nil {
			return errs.Wrap(err, "enqueue pull request analysis")
		}
		deps.Analysis.Wait()

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "pull request %d analyzed (job %s)\n", id, jobID); err != nil {
			return errs.Wrap(err, "write output")
		}
		return nil
	}),
}

var analyzeTranscriptCmd = &cobra.Command{
	Use:   "transcript <id>",
	Short: "Re-run analysis for a stored transcript",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 64)
		if err != nil {
			return errs.Wrap(err, "parse transcript id")
		}

		jobID, err := deps.Analysis.EnqueueTranscript(ctx, id, tracker.SystemActor())
		if err != nil {
			return errs.Wrap(err, "enqueue transcript analysis")
		}
		deps.Analysis.Wait()

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "transcript %d analyzed (job %s)\n", id, jobID); err != nil {
			return errs.Wrap(err, "write output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeCommitCmd)
	analyzeCmd.AddCommand(analyzePullCmd)
	analyzeCmd.AddCommand(analyzeTranscriptCmd)
}
