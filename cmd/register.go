package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <session-id> <image-file>",
	Short: "Register the reference face for a session",
	Long: `Upload an image containing exactly one face and store its embedding
under the given session id. Registering again replaces the reference.`,
	Example: `  face-compare register alice ./alice.jpg`,
	Args:    cobra.ExactArgs(2),
	RunE:    runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().Duration("timeout", 2*time.Minute, "Request timeout")
}

func runRegister(cmd *cobra.Command, args []string) error {
	sessionID, path := args[0], args[1]

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	c := newAPIClient(mustGetDuration(cmd, "timeout"))
	if err := c.Register(cmd.Context(), sessionID, image); err != nil {
		return fmt.Errorf("registering face: %w", err)
	}

	fmt.Printf("Registered reference face for session %s\n", sessionID)
	return nil
}
