package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a comparison job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is up",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)

	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	snap, err := newAPIClient(30*time.Second).JobStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching job status: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(snap)
	}

	fmt.Printf("Job:      %s\n", snap.ID)
	fmt.Printf("Status:   %s\n", snap.Status)
	fmt.Printf("Progress: %d%% (%d/%d images)\n", snap.Progress, snap.CurrentImage, snap.TotalImages)
	fmt.Printf("Matches:  %d\n", snap.MatchesFound)
	fmt.Printf("Message:  %s\n", snap.Message)
	for _, m := range snap.Matches {
		fmt.Printf("  image %d: %.4f\n", m.Index, m.Distance)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	h, err := newAPIClient(10*time.Second).Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}

	fmt.Printf("%s %s: %s (%d sessions, %d running jobs)\n", h.Service, h.Version, h.Status, h.ActiveSessions, h.ActiveJobs)
	return nil
}
