package dwd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/SENERGY-Platform/import-radolan/internal/observability"
)

// DefaultBaseURL is the DWD open-data server serving the RADOLAN archive.
const DefaultBaseURL = "https://opendata.dwd.de/"

// RemoteStore lists remote directories and downloads files. The production
// implementation talks to opendata.dwd.de; tests substitute an httptest
// server.
type RemoteStore interface {
	// List returns the file names in the remote directory that carry the
	// given suffix, sorted ascending.
	List(ctx context.Context, dir, suffix string) ([]string, error)

	// Download fetches the remote file into localPath and returns the local
	// path. If localPath already exists the download is skipped and the
	// existing path returned.
	Download(ctx context.Context, remoteURL, localPath string) (string, error)
}

// hrefRe matches file entries in the server's HTML directory index.
// Sub-directories (trailing slash) and query links are excluded.
var hrefRe = regexp.MustCompile(`href="([^"/?]+)"`)

// HTTPStore implements RemoteStore over the open-data HTTP index.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHTTPStore creates a store rooted at baseURL (DefaultBaseURL for
// production use).
func NewHTTPStore(baseURL string, metrics *observability.Metrics, logger *slog.Logger) *HTTPStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		metrics: metrics,
		logger:  logger,
	}
}

// BaseURL returns the store's root URL, with trailing slash.
func (s *HTTPStore) BaseURL() string { return s.baseURL }

func (s *HTTPStore) List(ctx context.Context, dir, suffix string) ([]string, error) {
	u := s.baseURL + strings.TrimPrefix(dir, "/")
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create listing request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: status %d", dir, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var files []string
	for _, match := range hrefRe.FindAllStringSubmatch(string(body), -1) {
		name := match[1]
		if suffix == "" || strings.HasSuffix(name, suffix) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *HTTPStore) Download(ctx context.Context, remoteURL, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err == nil {
		s.logger.Info("file exists, skipping download", "path", localPath)
		s.metrics.DownloadsSkipped.Inc()
		return localPath, nil
	}

	s.logger.Info("downloading remote file", "url", remoteURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", remoteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", remoteURL, resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", localPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("download %s: %w", remoteURL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}

	s.metrics.Downloads.Inc()
	return localPath, nil
}
