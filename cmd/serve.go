package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/logger"
	"github.com/kozaktomas/face-compare/internal/oracle"
	"github.com/kozaktomas/face-compare/internal/session"
	"github.com/kozaktomas/face-compare/internal/web"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the Face Compare HTTP API.
The server keeps reference faces in memory, runs batch comparisons in the
background and evicts idle sessions periodically. Face detection and
encoding are delegated to the face oracle at FACE_ORACLE_URL.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort applies explicitly set flags over the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	log := logger.New(os.Stderr, cfg.Log.Format, cfg.Log.Verbose)

	faceOracle, err := oracle.NewClient(cfg.Oracle.URL, cfg.Oracle.Timeout, cfg.Oracle.DistanceMetric)
	if err != nil {
		return fmt.Errorf("creating face oracle client: %w", err)
	}

	sessions := session.NewStore(session.WithTTL(cfg.Session.TTL))
	jobs := job.NewStore()
	decoder := facematch.WithDecoder(oracle.NewDecoder(cfg.Oracle.MaxImageSize))
	processor := facematch.NewProcessor(sessions, jobs, faceOracle, log,
		decoder, facematch.WithThreshold(cfg.Matching.BatchThreshold))
	registrar := facematch.NewRegistrar(sessions, faceOracle, log, decoder)
	cleaner := session.NewCleaner(sessions, cfg.Session.CleanupInterval, log)

	server := web.NewServer(cfg, web.Deps{
		Sessions:  sessions,
		Jobs:      jobs,
		Registrar: registrar,
		Processor: processor,
		Logger:    log,
		Version:   Version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleaner.Run(gCtx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		waitForJobs(shutdownCtx, processor, log)
		return nil
	})

	fmt.Printf("Starting Face Compare API on http://%s\n", cfg.Web.Addr())
	fmt.Printf("Face oracle: %s (%s, threshold %.2f)\n", cfg.Oracle.URL, cfg.Oracle.DistanceMetric, processor.Threshold())
	fmt.Println("Press Ctrl+C to stop")

	return g.Wait()
}

// waitForJobs gives running batch jobs until ctx ends to finish.
func waitForJobs(ctx context.Context, processor *facematch.Processor, log *bolt.Logger) {
	done := make(chan struct{})
	go func() {
		processor.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("abandoning batch jobs still running at shutdown")
	}
}
