package dwd

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractBundle extracts a downloaded historical bundle into dir and returns
// the member file names. One historical month (the first SF bundle of 2007)
// is a tar.gz wrapping a single inner tar; that one level is unwrapped
// transparently. Deeper nesting is unsupported and fails loudly.
func extractBundle(path, dir string) ([]string, error) {
	names, err := extractArchive(path, dir)
	if err != nil {
		return nil, err
	}

	if len(names) == 1 && isTarName(names[0]) {
		inner := filepath.Join(dir, names[0])
		innerNames, err := extractArchive(inner, dir)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(inner); err != nil {
			return nil, fmt.Errorf("remove inner archive %s: %w", inner, err)
		}
		if len(innerNames) == 1 && isTarName(innerNames[0]) {
			return nil, fmt.Errorf("archive %s is nested deeper than one level", path)
		}
		return innerNames, nil
	}
	return names, nil
}

func isTarName(name string) bool {
	return strings.HasSuffix(name, ".tar") || strings.HasSuffix(name, ".tar.gz")
}

// extractArchive extracts a tar or tar.gz file into dir, returning the names
// of the regular file members.
func extractArchive(path, dir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read archive %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	var names []string
	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive %s: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return nil, fmt.Errorf("archive %s: illegal member path %q", path, hdr.Name)
		}

		target := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		out, err := os.Create(target)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}
