package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/acme-edu/recording-pipeline/internal/artifact"
	"github.com/acme-edu/recording-pipeline/internal/clock"
	"github.com/acme-edu/recording-pipeline/internal/conferencing"
	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/courseresolve"
	"github.com/acme-edu/recording-pipeline/internal/forum"
	"github.com/acme-edu/recording-pipeline/internal/guard"
	"github.com/acme-edu/recording-pipeline/internal/httpapi"
	"github.com/acme-edu/recording-pipeline/internal/license"
	"github.com/acme-edu/recording-pipeline/internal/objectstore"
	"github.com/acme-edu/recording-pipeline/internal/pipeline"
	"github.com/acme-edu/recording-pipeline/internal/retryengine"
	"github.com/acme-edu/recording-pipeline/internal/store"
	"github.com/acme-edu/recording-pipeline/internal/wakeup"
	"github.com/acme-edu/recording-pipeline/internal/webhook"
)

const (
	defaultPIDPath  = "recording-pipeline.pid"
	transferTimeout = 0 // no timeout; transfers are bounded by context cancellation instead
)

func newServeCmd() *cobra.Command {
	var pidPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook admission server, admin API, and scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), pidPath)
		},
	}

	cmd.Flags().StringVar(&pidPath, "pid-file", defaultPIDPath, "PID file path, used to prevent two daemons from running concurrently")

	return cmd
}

func runServe(ctx context.Context, pidPath string) error {
	bootLogger := buildLogger("")

	cfg, err := config.LoadOrDefault(flagConfigPath, bootLogger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(cfg.Logging.Level)

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx = shutdownContext(ctx, logger)

	st, err := store.New(ctx, cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	coordinator, conferencingClient, err := buildPipeline(*cfg, st, logger)
	if err != nil {
		return err
	}

	server := buildHTTPServer(*cfg, st, coordinator, conferencingClient, logger)

	wakeupJob := buildWakeupJob(*cfg, st, coordinator, logger)
	go wakeupJob.RunLoop(ctx)

	return serveHTTP(ctx, cfg.Server.Addr, server, logger)
}

// buildPipeline wires every outbound client and process-local guard into a
// pipeline.Coordinator.
func buildPipeline(cfg config.Config, st *store.SQLiteStore, logger *slog.Logger) (*pipeline.Coordinator, *conferencing.Client, error) {
	clk := clock.Real{}

	// Built before transferClient: a download's 401/403 forces a refresh
	// through conferencingClient.RefreshAccessToken, since the recording
	// artifact URLs transferClient downloads are issued by this same
	// OAuth-authenticated provider.
	conferencingClient := conferencing.NewClient(cfg.Conferencing, http.DefaultClient, logger)

	transferHTTP := &http.Client{Timeout: transferTimeout}

	transferClient := artifact.NewClient(
		transferHTTP, logger, clk, int64(cfg.Transfer.ChunkSizeMB)*1024*1024,
		cfg.Retry.MaxRetriesDownload, cfg.Retry.MaxRetriesUpload,
		time.Duration(cfg.Retry.InitialBackoffMs)*time.Millisecond,
		time.Duration(cfg.Retry.MaxBackoffMs)*time.Millisecond,
		conferencingClient,
	)

	objStore := objectstore.NewClient(cfg.ObjectStore, http.DefaultClient, transferClient, logger)
	forumClient := forum.NewClient(cfg.Forum, http.DefaultClient, logger)
	licenseClient := license.NewClient(cfg.License, http.DefaultClient, logger)
	resolver := courseresolve.NewResolver(forumClient, cfg.CourseResolve, clk)

	guards := pipeline.NewGuards(cfg.Transfer.UploadConcurrency)

	coordinator := pipeline.NewCoordinator(pipeline.Deps{
		Downloader:   transferClient,
		ObjectStore:  objStore,
		Forum:        forumClient,
		License:      licenseClient,
		Resolver:     resolver,
		Conferencing: conferencingClient,
		Store:        st,
		Guards:       guards,
		Clock:        clk,
	}, cfg, logger)

	return coordinator, conferencingClient, nil
}

// buildHTTPServer wires the admission/admin HTTP surface (spec §6).
func buildHTTPServer(cfg config.Config, st *store.SQLiteStore, coordinator *pipeline.Coordinator, conferencingClient *conferencing.Client, logger *slog.Logger) *httpapi.Server {
	webhookHandler := webhook.NewHandler(cfg.Webhook.Secret, cfg.Webhook.DisableSignature, coordinator, logger)
	retryEngine := retryengine.NewEngine(st, coordinator, guard.NewRetryGuard())
	syncer := httpapi.NewSyncer(conferencingClient, coordinator, st, logger)

	return httpapi.NewServer(webhookHandler, retryEngine, syncer, st, logger)
}

// buildWakeupJob wires spec §4.9's scheduled sweep, reusing the same
// objectstore.Client the pipeline uploads through.
func buildWakeupJob(cfg config.Config, st *store.SQLiteStore, coordinator interface {
	ProcessMeetingRecordings(ctx context.Context, externalMeetingID string, forceRedownload bool) (map[string]any, error)
}, logger *slog.Logger) *wakeup.Job {
	// No TokenRefresher: this transferClient only satisfies objectstore's
	// SessionInitiator shape and is never used to download anything (the
	// wakeup job only calls ProbeHead/GetMetadata, both plain httpClient
	// calls with no bearer-token retry path).
	objStore := objectstore.NewClient(cfg.ObjectStore, http.DefaultClient, artifact.NewClient(
		http.DefaultClient, logger, clock.Real{}, int64(cfg.Transfer.ChunkSizeMB)*1024*1024,
		cfg.Retry.MaxRetriesDownload, cfg.Retry.MaxRetriesUpload,
		time.Duration(cfg.Retry.InitialBackoffMs)*time.Millisecond,
		time.Duration(cfg.Retry.MaxBackoffMs)*time.Millisecond,
		nil,
	), logger)

	return wakeup.NewJob(st, objStore, clock.Real{}, cfg.Wakeup, logger)
}

func serveHTTP(ctx context.Context, addr string, server *httpapi.Server, logger *slog.Logger) error {
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("httpapi:listening", slog.String("addr", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("httpapi:shutting-down")

		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("httpapi: %w", err)
	}
}
