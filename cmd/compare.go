package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/job"
)

var compareCmd = &cobra.Command{
	Use:   "compare <session-id> <image-file>...",
	Short: "Compare images against a session's reference face",
	Long: `Submit a batch of images for comparison and wait for the job to finish.
Progress is shown while the server processes the batch. Matches are printed
with their distance; lower is more similar.`,
	Example: `  face-compare compare alice ./party/*.jpg
  face-compare compare alice a.jpg b.jpg --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Duration("poll", constants.DefaultPollInterval, "Job status poll interval")
	compareCmd.Flags().Duration("timeout", 5*time.Minute, "Per-request timeout")
	compareCmd.Flags().Bool("json", false, "Output the final job as JSON")
	compareCmd.Flags().Bool("keep", false, "Keep the finished job on the server instead of deleting it")
}

// compareResult is the JSON output of the compare command.
type compareResult struct {
	Job   *job.Snapshot `json:"job"`
	Files []string      `json:"files"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	sessionID, paths := args[0], args[1:]
	jsonOutput := mustGetBool(cmd, "json")

	images := make([][]byte, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		images[i] = data
	}

	c := newAPIClient(mustGetDuration(cmd, "timeout"))
	jobID, err := c.CompareBatch(cmd.Context(), sessionID, images)
	if err != nil {
		return fmt.Errorf("submitting batch: %w", err)
	}

	bar := newCompareProgressBar(len(images), jsonOutput)
	snap, err := c.WaitForJob(cmd.Context(), jobID, mustGetDuration(cmd, "poll"), func(s job.Snapshot) {
		if bar != nil {
			bar.Set(s.CurrentImage)
		}
	})
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("waiting for job %s: %w", jobID, err)
	}
	if !mustGetBool(cmd, "keep") {
		if err := c.DeleteJob(cmd.Context(), jobID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete job %s: %v\n", jobID, err)
		}
	}

	if jsonOutput {
		return outputJSON(compareResult{Job: snap, Files: paths})
	}

	if snap.Status == job.StatusFailed {
		return errors.New(snap.Message)
	}
	printMatches(snap, paths, config.Load().Matching.SingleThreshold)
	return nil
}

// newCompareProgressBar returns nil when output is machine readable.
func newCompareProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Comparing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// printMatches lists matched files. Distances at or below strongThreshold are flagged.
func printMatches(snap *job.Snapshot, paths []string, strongThreshold float64) {
	fmt.Println(snap.Message)
	if len(snap.Matches) == 0 {
		return
	}

	fmt.Println()
	for _, m := range snap.Matches {
		name := fmt.Sprintf("#%d", m.Index)
		if m.Index >= 0 && m.Index < len(paths) {
			name = filepath.Base(paths[m.Index])
		}
		marker := ""
		if m.Distance <= strongThreshold {
			marker = "  (strong)"
		}
		fmt.Printf("  %-40s %.4f%s\n", name, m.Distance, marker)
	}
}
