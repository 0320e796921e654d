package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/client"
	"github.com/kozaktomas/face-compare/internal/config"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "face-compare",
	Short: "Register a reference face and find it in batches of photos",
	Long: `Face Compare is a small service that keeps one reference face per session
and compares batches of images against it in the background.

Run "face-compare serve" to start the HTTP API. The other commands are
clients for a running server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "", "face-compare API URL (defaults to FACE_COMPARE_URL or http://localhost:8080)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newAPIClient builds an API client from --url or the environment.
func newAPIClient(timeout time.Duration) *client.Client {
	url := apiURL
	if url == "" {
		url = config.Load().Client.URL
	}
	return client.New(url, timeout)
}
