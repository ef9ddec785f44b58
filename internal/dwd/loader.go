// Package dwd resolves which remote RADOLAN composite files are needed and
// makes them available locally: directory listing on the open-data server,
// idempotent downloads, historical bundle extraction, and cutoff-based
// skipping of already-imported data.
package dwd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SENERGY-Platform/import-radolan/internal/domain"
)

// ErrNoRecentFiles is returned by DownloadLatest when the remote recent
// directory lists no composite files.
var ErrNoRecentFiles = errors.New("no recent files available")

// Batch is one archive bundle's worth of locally available files, delivered
// as soon as it is ready so multi-year backfills stay bounded in memory.
// Err is set when acquisition cannot continue (failed download or broken
// archive); Files is empty in that case.
type Batch struct {
	Files []string
	Err   error
}

// Loader acquires composite files for one product.
type Loader struct {
	store   RemoteStore
	dataDir string
	cfg     domain.ProductConfig
	clock   clockwork.Clock
	logger  *slog.Logger

	recentURL     string
	historicalURL string
}

// NewLoader creates a Loader downloading into dataDir, which is created if
// absent.
func NewLoader(store RemoteStore, baseURL string, product domain.Product, dataDir string, clock clockwork.Clock, logger *slog.Logger) (*Loader, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	cfg := product.Config()
	return &Loader{
		store:         store,
		dataDir:       dataDir,
		cfg:           cfg,
		clock:         clock,
		logger:        logger,
		recentURL:     baseURL + cfg.RecentPath,
		historicalURL: baseURL + cfg.HistoricalPath,
	}, nil
}

// DownloadLatest downloads the most recent composite file and returns its
// local path. The download is a no-op returning the existing path when the
// file is already present locally.
func (l *Loader) DownloadLatest(ctx context.Context) (string, error) {
	files := l.listDir(ctx, l.cfg.RecentPath, "bin.gz")
	if len(files) == 0 {
		return "", ErrNoRecentFiles
	}
	name := files[len(files)-1]
	return l.store.Download(ctx, l.recentURL+name, filepath.Join(l.dataDir, name))
}

// StreamYear downloads all composite files of a year and delivers them as
// batches on the returned channel, one batch per archive bundle (or per file
// for the current year). A zero cutoff disables date filtering; otherwise
// bundles whose month precedes the cutoff month and files whose embedded
// timestamp predates the cutoff instant are skipped. maxFiles > 0 truncates
// the bundle list (debug aid). The channel is closed when the year is
// exhausted, an error was delivered, or the context ends.
func (l *Loader) StreamYear(ctx context.Context, year int, cutoff time.Time, maxFiles int) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		if year == l.clock.Now().Year() {
			l.streamRecent(ctx, cutoff, out)
			return
		}
		l.streamHistorical(ctx, year, cutoff, maxFiles, out)
	}()
	return out
}

// DownloadFromYear is the accumulating variant of StreamYear: it returns all
// of the year's files sorted, or the first error.
func (l *Loader) DownloadFromYear(ctx context.Context, year int, cutoff time.Time, maxFiles int) ([]string, error) {
	var files []string
	for batch := range l.StreamYear(ctx, year, cutoff, maxFiles) {
		if batch.Err != nil {
			return nil, batch.Err
		}
		files = append(files, batch.Files...)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) streamRecent(ctx context.Context, cutoff time.Time, out chan<- Batch) {
	for _, name := range l.listDir(ctx, l.cfg.RecentPath, "bin.gz") {
		if !l.needsImport(cutoff, name) {
			l.logger.Debug("skipping file (already imported)", "file", name)
			continue
		}
		local, err := l.store.Download(ctx, l.recentURL+name, filepath.Join(l.dataDir, name))
		if err != nil {
			send(ctx, out, Batch{Err: err})
			return
		}
		if !send(ctx, out, Batch{Files: []string{local}}) {
			return
		}
	}
}

func (l *Loader) streamHistorical(ctx context.Context, year int, cutoff time.Time, maxFiles int, out chan<- Batch) {
	yearDir := l.cfg.HistoricalPath + strconv.Itoa(year) + "/"
	bundles := l.listDir(ctx, yearDir, "tar.gz")
	if maxFiles > 0 && len(bundles) > maxFiles {
		bundles = bundles[:maxFiles]
	}

	for _, bundle := range bundles {
		if !cutoff.IsZero() {
			if month, ok := archiveMonth(bundle, year); ok && month < cutoff.Month() {
				l.logger.Debug("skipping bundle (already imported)", "bundle", bundle, "month", int(month))
				continue
			}
		}

		local, err := l.store.Download(ctx, l.historicalURL+strconv.Itoa(year)+"/"+bundle, filepath.Join(l.dataDir, bundle))
		if err != nil {
			send(ctx, out, Batch{Err: err})
			return
		}

		l.logger.Info("extracting local file", "path", local)
		names, err := extractBundle(local, l.dataDir)
		if err != nil {
			send(ctx, out, Batch{Err: err})
			return
		}
		if err := os.Remove(local); err != nil {
			send(ctx, out, Batch{Err: fmt.Errorf("remove bundle %s: %w", local, err)})
			return
		}

		var files []string
		for _, name := range names {
			if !l.needsImport(cutoff, name) {
				l.logger.Debug("skipping file (already imported)", "file", name)
				continue
			}
			files = append(files, filepath.Join(l.dataDir, name))
		}
		sort.Strings(files)
		if !send(ctx, out, Batch{Files: files}) {
			return
		}
	}
}

// listDir lists a remote directory, degrading to an empty result with a
// warning when the listing fails. A transient directory that can't be listed
// must not crash the whole acquisition run.
func (l *Loader) listDir(ctx context.Context, dir, suffix string) []string {
	files, err := l.store.List(ctx, dir, suffix)
	if err != nil {
		l.logger.Warn("could not fetch files from dir", "dir", dir, "error", err)
		return nil
	}
	return files
}

// needsImport reports whether a file's embedded timestamp is at or after the
// cutoff. An unparseable name is logged and treated as needed: never drop
// data silently because the provider changed the naming scheme.
func (l *Loader) needsImport(cutoff time.Time, name string) bool {
	if cutoff.IsZero() {
		return true
	}
	ts, ok := ParseFilenameTime(filepath.Base(name))
	if !ok {
		l.logger.Error("timestamp of filename could not be parsed, format changed?", "file", name)
		return true
	}
	return !ts.Before(cutoff)
}

func send(ctx context.Context, out chan<- Batch, b Batch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
