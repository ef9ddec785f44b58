package dwd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarMember struct {
	name string
	data []byte
}

func writeTar(t *testing.T, members []tarMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(len(m.data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractBundleFlat(t *testing.T) {
	dir := t.TempDir()
	members := []tarMember{
		{name: "raa01-sf_10000-1907010050-dwd---bin", data: []byte("one")},
		{name: "raa01-sf_10000-1907020050-dwd---bin", data: []byte("two")},
	}
	path := writeFixture(t, dir, "SF-201907.tar.gz", gzipBytes(t, writeTar(t, members)))

	names, err := extractBundle(path, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"raa01-sf_10000-1907010050-dwd---bin",
		"raa01-sf_10000-1907020050-dwd---bin",
	}, names)

	data, err := os.ReadFile(filepath.Join(dir, "raa01-sf_10000-1907020050-dwd---bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestExtractBundleUnwrapsOneNestedLevel(t *testing.T) {
	dir := t.TempDir()
	inner := writeTar(t, []tarMember{
		{name: "raa01-sf_10000-0707010050-dwd---bin", data: []byte("payload")},
	})
	outer := writeTar(t, []tarMember{{name: "SF200707.tar", data: inner}})
	path := writeFixture(t, dir, "SF200707.tar.gz", gzipBytes(t, outer))

	names, err := extractBundle(path, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"raa01-sf_10000-0707010050-dwd---bin"}, names)

	// The inner archive is cleaned up after unwrapping.
	_, err = os.Stat(filepath.Join(dir, "SF200707.tar"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractBundleRejectsDeeperNesting(t *testing.T) {
	dir := t.TempDir()
	innermost := writeTar(t, []tarMember{{name: "file.bin", data: []byte("x")}})
	inner := writeTar(t, []tarMember{{name: "level2.tar", data: innermost}})
	outer := writeTar(t, []tarMember{{name: "level1.tar", data: inner}})
	path := writeFixture(t, dir, "nested.tar.gz", gzipBytes(t, outer))

	_, err := extractBundle(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested deeper than one level")
}

func TestExtractArchiveRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	members := []tarMember{{name: "../escape.bin", data: []byte("x")}}
	path := writeFixture(t, dir, "evil.tar.gz", gzipBytes(t, writeTar(t, members)))

	_, err := extractArchive(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal member path")
}

func TestExtractArchivePlainTar(t *testing.T) {
	dir := t.TempDir()
	members := []tarMember{{name: "file.bin", data: []byte("plain")}}
	path := writeFixture(t, dir, "plain.tar", writeTar(t, members))

	names, err := extractArchive(path, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"file.bin"}, names)
}
