package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/domain/tracker"
	"github.com/mosaicpm/mosaic/internal/errs"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Work with meeting transcripts",
}

var transcriptIngestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Store a transcript file and run analysis",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path := cmd.Flags().Arg(0)
		raw, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrap(err, "read transcript file")
		}

		projectID, _ := cmd.Flags().GetUint64("project")
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		transcript, jobID, err := deps.Analysis.IngestTranscript(ctx, projectID, title, string(raw), tracker.SystemActor())
		if err != nil {
			return errs.Wrap(err, "ingest transcript")
		}
		deps.Analysis.Wait()

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "transcript %d ingested (job %s)\n", transcript.TranscriptID, jobID); err != nil {
			return errs.Wrap(err, "write output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.AddCommand(transcriptIngestCmd)

	transcriptIngestCmd.Flags().Uint64("project", 0, "Project id")
	transcriptIngestCmd.Flags().String("title", "", "Transcript title (defaults to the file name)")
	_ = transcriptIngestCmd.MarkFlagRequired("project")
}
