// Command importer ingests DWD RADOLAN precipitation composites, annotates
// them with rain-warning levels, and publishes them to Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/SENERGY-Platform/import-radolan/internal/adapter/httpapi"
	kafkaadapter "github.com/SENERGY-Platform/import-radolan/internal/adapter/kafka"
	"github.com/SENERGY-Platform/import-radolan/internal/adapter/wradlib"
	"github.com/SENERGY-Platform/import-radolan/internal/config"
	"github.com/SENERGY-Platform/import-radolan/internal/dwd"
	"github.com/SENERGY-Platform/import-radolan/internal/importer"
	"github.com/SENERGY-Platform/import-radolan/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "import-radolan",
	Short: "Import DWD RADOLAN precipitation data into Kafka",
	Long: `Imports gridded precipitation composites published by the DWD,
filters them to configured bounding boxes, annotates rain-warning levels,
and publishes geo-referenced observations to Kafka.

Without a subcommand the service backfills the configured years, then
imports the most recent composite hourly.`,
	RunE: runServe,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill [year...]",
	Short: "Import historical composite files for the given years and exit",
	RunE:  runBackfill,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Import the most recent composite file and exit",
	RunE:  runLatest,
}

func init() {
	rootCmd.AddCommand(backfillCmd, latestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and wires the importer with its adapters. The
// returned close function flushes the Kafka producer.
func setup(ctx context.Context) (*importer.Importer, *config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, nil, nil, nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	sink := kafkaadapter.NewSink(cfg, metrics, logger)

	store := dwd.NewHTTPStore(dwd.DefaultBaseURL, metrics, logger)
	loader, err := dwd.NewLoader(store, store.BaseURL(), cfg.Product, cfg.DataDir, clock, logger)
	if err != nil {
		logger.Error("failed to set up acquisition", "error", err)
		return nil, nil, nil, nil, err
	}

	decoder := wradlib.NewDecoder(cfg.DecoderCmd, logger)
	projector := wradlib.NewProjector(cfg.DecoderCmd, logger)

	imp, err := importer.New(ctx, cfg.Product, cfg.EPSG, cfg.BBoxes,
		projector, decoder, sink, loader, cfg.DeleteFiles, clock, logger, metrics)
	if err != nil {
		logger.Error("failed to set up importer", "error", err)
		return nil, nil, nil, nil, err
	}

	closeAll := func() {
		if err := sink.Close(); err != nil {
			logger.Error("kafka producer close error", "error", err)
		}
	}
	return imp, cfg, logger, closeAll, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imp, cfg, logger, closeAll, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	srv := httpapi.NewServer(cfg.HTTPAddr, imp, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := imp.Run(ctx, cfg.ImportYears)
	if runErr != nil {
		logger.Error("importer error", "error", runErr)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return runErr
}

func runBackfill(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imp, cfg, _, closeAll, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	years := cfg.ImportYears
	if len(args) > 0 {
		years = make([]int, 0, len(args))
		for _, arg := range args {
			year, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid year %q", arg)
			}
			years = append(years, year)
		}
	}
	return imp.Backfill(ctx, years)
}

func runLatest(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imp, _, _, closeAll, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	return imp.ImportMostRecent(ctx)
}
