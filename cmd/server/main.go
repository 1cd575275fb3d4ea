// Package main initializes and starts the mottokeeper HTTP server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/mottokeeper/internal/audio"
	"github.com/atinyakov/mottokeeper/internal/auth"
	"github.com/atinyakov/mottokeeper/internal/cipher"
	"github.com/atinyakov/mottokeeper/internal/config"
	"github.com/atinyakov/mottokeeper/internal/db"
	"github.com/atinyakov/mottokeeper/internal/logger"
	"github.com/atinyakov/mottokeeper/internal/middleware"
	"github.com/atinyakov/mottokeeper/internal/repository"
	"github.com/atinyakov/mottokeeper/internal/server/handler/http"
	"github.com/atinyakov/mottokeeper/internal/service"
	"github.com/atinyakov/mottokeeper/internal/transcribe"
	"github.com/atinyakov/mottokeeper/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mottokeeper: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var options *config.Options
	cmd := &cobra.Command{
		Use:          "mottokeeper",
		Short:        "Motto upload and transcription server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := options.Resolve(); err != nil {
				return err
			}
			return serve(cmd.Context(), options)
		},
	}
	options = config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(
		newServeCmd(options),
		newMigrateCmd(options),
	)
	return cmd
}

func newServeCmd(options *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := options.Resolve(); err != nil {
				return err
			}
			return serve(cmd.Context(), options)
		},
	}
}

func newMigrateCmd(options *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := options.Load(); err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), options.DatabaseDSN)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func serve(ctx context.Context, options *config.Options) error {
	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Prepare the working directories and the stale staging file cleaner.
	area, err := workspace.New(options.UploadDir, options.WavUploadDir)
	if err != nil {
		zapLogger.Fatal("cannot prepare upload folders", zap.Error(err))
	}
	workspace.StartStaleFileCleaner(ctx, area,
		options.CleanupInterval,
		options.CleanupRetention,
		zapLogger,
	)

	// Build the pipeline components.
	motto, err := cipher.New(options.EncryptionKey, cipher.Algorithm(options.CipherAlgorithm))
	if err != nil {
		zapLogger.Fatal("cannot init cipher", zap.Error(err))
	}
	tokens, err := auth.NewTokenManager(options.JWTSecret, options.TokenTTL, auth.WithIssuer("mottokeeper"))
	if err != nil {
		zapLogger.Fatal("cannot init token manager", zap.Error(err))
	}
	normalizer := audio.NewNormalizer(options.AllowedExtensions,
		audio.WithFFmpeg(options.FFmpegPath),
		audio.WithTimeout(options.NormalizeTimeout),
	)
	tr := options.Transcription
	transcriber := transcribe.NewClient(
		transcribe.NewHTTPProvider(transcribe.HTTPConfig{
			URL:      tr.URL,
			APIKey:   tr.APIKey,
			Model:    tr.Model,
			Language: tr.Language,
		}, &nethttp.Client{}),
		transcribe.WithTimeout(tr.Timeout),
		transcribe.WithRetries(tr.Retries),
		transcribe.WithDelay(tr.MinDelay, tr.MaxDelay),
		transcribe.WithLogger(zapLogger),
	)

	// Initialize repository and business-logic services.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	authService := service.NewAuthService(userRepo, tokens, options.BcryptCost)
	profileService := service.NewProfileService(userRepo, motto)
	uploadService := service.NewUploadService(userRepo, normalizer, transcriber, motto, area, zapLogger,
		service.WithFailurePolicy(service.FailurePolicy(tr.FailurePolicy)),
	)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Logger: zapLogger}
	userHandler := &http.UserHandler{ProfileService: profileService, Logger: zapLogger}
	uploadHandler := &http.UploadHandler{
		UploadService: uploadService,
		MaxBytes:      options.MaxUploadBytes,
		Logger:        zapLogger,
	}

	versionGate, err := middleware.NewVersionGate(options.MinAppVersion)
	if err != nil {
		zapLogger.Fatal("invalid min app version", zap.Error(err))
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, userHandler, uploadHandler, tokens, versionGate, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
	}
	return nil
}
