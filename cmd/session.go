package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or delete registered sessions",
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session's reference face",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionInfoCmd = &cobra.Command{
	Use:   "info <session-id>",
	Short: "Show when a session was created, last used and expires",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionInfo,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionInfoCmd)

	sessionInfoCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if err := newAPIClient(30*time.Second).DeleteSession(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionInfo(cmd *cobra.Command, args []string) error {
	info, err := newAPIClient(30*time.Second).SessionInfo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(info)
	}

	fmt.Printf("Session:       %s\n", info.ID)
	fmt.Printf("Created:       %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Last accessed: %s\n", info.LastAccessed.Format(time.RFC3339))
	fmt.Printf("Expires:       %s\n", info.ExpiresAt.Format(time.RFC3339))
	return nil
}
