// Package serve implements the long-running journal service: the record
// store, the transcription processor, and the HTTP surface.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mveikko/daybook-go/internal/api"
	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/journal"
	"github.com/mveikko/daybook-go/internal/logging"
	"github.com/mveikko/daybook-go/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the journal service",
		Long:  "Start the record store, the transcription processor, and the HTTP API, and run until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().IntVar(&settings.WebServer.Port, "port", viper.GetInt("webserver.port"), "HTTP port for the API")
	cmd.Flags().StringVar(&settings.Capture.ClipPath, "clippath", viper.GetString("capture.clippath"), "Directory the capture service writes clips to")
	cmd.Flags().StringVar(&settings.Journal.Transcription.Command, "transcriber", viper.GetString("journal.transcription.command"), "External speech-to-text command")
	cmd.Flags().BoolVar(&settings.Location.Enabled, "location", viper.GetBool("location.enabled"), "Record location visits")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runServe(settings *conf.Settings) error {
	logger := logging.ForService("serve")
	if logger == nil {
		logger = slog.Default().With("service", "serve")
	}

	if settings.Main.Log.Enabled {
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "daybook", slog.LevelInfo)
		if err != nil {
			logger.Error("failed to open service log file", "path", settings.Main.Log.Path, "error", err)
		} else {
			slog.SetDefault(fileLogger)
			defer closeLog() //nolint:errcheck // best effort on shutdown
		}
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in settings")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	var transcriber journal.Transcriber
	if ct := journal.NewCommandTranscriber(settings.Journal.Transcription.Command); ct != nil {
		transcriber = ct
	} else {
		logger.Warn("no transcription command configured, segments will stay pending")
	}

	processor := journal.New(settings, store, transcriber, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor.Start(ctx, nil)
	defer processor.Stop()

	if !settings.WebServer.Enabled {
		logger.Info("web server disabled, running processor only")
		<-ctx.Done()
		return nil
	}

	e, _ := api.NewServer(store, settings, processor, metrics)

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", settings.WebServer.Port)
		logger.Info("http server starting", "addr", addr)
		errChan <- e.Start(addr)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx, e); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	return nil
}
