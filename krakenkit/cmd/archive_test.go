package cmd

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "results")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	writeFile(t, src, "merged_kraken.tsv", "header\n")
	writeFile(t, filepath.Join(src, "sub"), "sampleA_report.txt", "line\n")

	dest := filepath.Join(t.TempDir(), "results.tar.gz")
	require.NoError(t, archiveDir(src, dest, false))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"results/merged_kraken.tsv",
		"results/sub/sampleA_report.txt",
	}, names)
}

func TestArchiveDirRefusesOverwrite(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", "x")
	dest := filepath.Join(t.TempDir(), "out.tar.gz")

	require.NoError(t, archiveDir(src, dest, false))
	assert.Error(t, archiveDir(src, dest, false))
	assert.NoError(t, archiveDir(src, dest, true))
}
