// Package importer wires grid, mask, history, classification, acquisition,
// and sink into the per-product import pipeline.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SENERGY-Platform/import-radolan/internal/classify"
	"github.com/SENERGY-Platform/import-radolan/internal/domain"
	"github.com/SENERGY-Platform/import-radolan/internal/dwd"
	"github.com/SENERGY-Platform/import-radolan/internal/observability"
)

// recentImportMinute is the minute of the hour at which the recurring
// most-recent import runs; the DWD publishes new composites shortly before.
const recentImportMinute = 45

// Acquirer resolves and downloads remote composite files. Implemented by
// dwd.Loader; tests substitute fakes.
type Acquirer interface {
	DownloadLatest(ctx context.Context) (string, error)
	StreamYear(ctx context.Context, year int, cutoff time.Time, maxFiles int) <-chan dwd.Batch
}

// Importer runs the stateful import pipeline for one product. All mutable
// state (history, readiness) belongs to a single Importer; files of one
// product are processed strictly sequentially. Independent products get
// independent Importer instances.
type Importer struct {
	product     domain.Product
	cfg         domain.ProductConfig
	epsg        int
	grid        domain.Grid
	mask        domain.Mask
	decoder     domain.GridDecoder
	sink        domain.Sink
	acquirer    Acquirer
	annotator   *classify.Annotator
	deleteFiles bool
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New builds the importer for a product: projects the static grid once,
// precomputes the bounding-box mask, and seeds the classifier history from
// the sink's recent message log.
func New(ctx context.Context, product domain.Product, epsg int, bboxes []domain.BoundingBox,
	projector domain.GridProjector, decoder domain.GridDecoder, sink domain.Sink, acquirer Acquirer,
	deleteFiles bool, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Importer, error) {

	cfg := product.Config()
	grid, err := projector.ProjectGrid(ctx, cfg.GridRows, cfg.GridCols, epsg)
	if err != nil {
		return nil, fmt.Errorf("project %s grid: %w", product, err)
	}

	logger.Debug("preparing mask", "product", product.String(), "bboxes", len(bboxes))
	mask := domain.BuildMask(grid, bboxes)
	logger.Info("mask prepared", "product", product.String(), "cells", len(mask))

	// The history must cover every masked location over the product's
	// native window to classify without gaps after a restart.
	replay, err := sink.RecentMessages(ctx, cfg.HistoryWindowHours*len(mask))
	if err != nil {
		logger.Warn("could not load recent messages, starting with empty history", "error", err)
	}

	return &Importer{
		product:     product,
		cfg:         cfg,
		epsg:        epsg,
		grid:        grid,
		mask:        mask,
		decoder:     decoder,
		sink:        sink,
		acquirer:    acquirer,
		annotator:   classify.NewAnnotator(replay, logger),
		deleteFiles: deleteFiles,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// CheckReadiness returns nil once at least one file has been processed.
func (i *Importer) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("importer has not processed any files yet")
	}
	return nil
}

// ImportFile decodes one composite file, classifies every masked cell, and
// publishes the resulting observations. A file that cannot be decoded is
// skipped with zero points; this is expected for occasional invalid DWD
// data and must not abort a batch.
func (i *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	start := time.Now()
	defer func() {
		i.metrics.FilesProcessed.Inc()
		i.metrics.FileProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	composite, err := i.decoder.Decode(ctx, path)
	if err != nil {
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) {
			i.logger.Warn("skipping file, most likely invalid DWD data", "file", path, "error", err)
			i.metrics.DecodeErrors.Inc()
			return 0, nil
		}
		return 0, err
	}
	if len(composite.Values) != i.grid.Rows() || len(composite.Values[0]) != i.grid.Cols() {
		i.logger.Warn("skipping file with unexpected grid dimensions",
			"file", path, "rows", len(composite.Values))
		i.metrics.DecodeErrors.Inc()
		return 0, nil
	}

	points := 0
	for _, cell := range i.mask {
		raw := composite.Values[cell.Row][cell.Col]
		if raw == composite.NoDataValue {
			continue
		}
		value := domain.RoundValue(raw)
		coord := i.grid.At(cell.Row, cell.Col)

		level, event := i.annotator.Classify(i.cfg.Family, composite.Timestamp, coord.Lat, coord.Lon, value)
		obs := domain.NewObservation(composite.Timestamp, coord.Lat, coord.Lon, value,
			i.epsg, composite.Precision, i.cfg.Unit, int(level), event)

		if err := i.sink.Put(ctx, composite.Timestamp, obs); err != nil {
			return points, fmt.Errorf("publish observation: %w", err)
		}
		points++
	}

	i.metrics.PointsImported.Add(float64(points))
	if i.deleteFiles {
		if err := os.Remove(path); err != nil {
			i.logger.Warn("could not delete local file", "file", path, "error", err)
		}
	}
	i.ready.Store(true)
	return points, nil
}

// ImportFiles imports a batch sequentially and returns the total points.
func (i *Importer) ImportFiles(ctx context.Context, files []string) (int, error) {
	total := 0
	for _, file := range files {
		n, err := i.ImportFile(ctx, file)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportMostRecent downloads and imports the newest composite file.
func (i *Importer) ImportMostRecent(ctx context.Context) error {
	file, err := i.acquirer.DownloadLatest(ctx)
	if err != nil {
		return fmt.Errorf("download latest: %w", err)
	}
	points, err := i.ImportFile(ctx, file)
	if err != nil {
		return err
	}
	i.logger.Info("imported points from most recent data", "points", points)
	return nil
}

// ImportYear backfills one year, consuming acquisition batches as they
// arrive. A zero cutoff imports the whole year.
func (i *Importer) ImportYear(ctx context.Context, year int, cutoff time.Time) error {
	if year < i.cfg.MinYear {
		return fmt.Errorf("year %d is before the first available year %d for product %s", year, i.cfg.MinYear, i.product)
	}
	i.logger.Info("starting backfill", "product", i.product.String(), "year", year, "cutoff", cutoff)

	total := 0
	for batch := range i.acquirer.StreamYear(ctx, year, cutoff, 0) {
		if batch.Err != nil {
			return fmt.Errorf("acquire year %d: %w", year, batch.Err)
		}
		n, err := i.ImportFiles(ctx, batch.Files)
		total += n
		if err != nil {
			return err
		}
	}
	i.logger.Info("backfill finished", "year", year, "points", total)
	return nil
}

// Backfill imports the configured years, resuming from the sink's last
// durably published timestamp: years already fully covered are skipped, the
// year containing the timestamp is partially backfilled from it, and later
// years are imported completely.
func (i *Importer) Backfill(ctx context.Context, years []int) error {
	last, covered, err := i.sink.LastPublishedTimestamp(ctx)
	if err != nil {
		i.logger.Warn("could not determine last published timestamp, backfilling from scratch", "error", err)
		covered = false
	}

	for _, year := range years {
		switch {
		case covered && year < last.Year():
			i.logger.Info("skipping year (already imported)", "year", year)
		case covered && year == last.Year():
			if err := i.ImportYear(ctx, year, last); err != nil {
				return err
			}
		default:
			if err := i.ImportYear(ctx, year, time.Time{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run executes the serve loop: backfill configured years, import the most
// recent file once, then repeat the most-recent import hourly at minute 45
// until the context ends.
func (i *Importer) Run(ctx context.Context, years []int) error {
	i.metrics.ImporterRunning.Set(1)
	defer i.metrics.ImporterRunning.Set(0)

	if err := i.Backfill(ctx, years); err != nil {
		return err
	}
	if err := i.ImportMostRecent(ctx); err != nil {
		i.logger.Error("most recent import failed", "error", err)
	}

	for {
		delay := nextImportDelay(i.clock.Now())
		select {
		case <-ctx.Done():
			i.logger.Info("importer stopping", "reason", ctx.Err())
			return nil
		case <-i.clock.After(delay):
		}
		if err := i.ImportMostRecent(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Error("most recent import failed", "error", err)
		}
	}
}

// nextImportDelay returns the duration until the next scheduled most-recent
// import (minute 45 of this or the next hour).
func nextImportDelay(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), recentImportMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next.Sub(now)
}
