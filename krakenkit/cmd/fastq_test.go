package cmd

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoReadFastq = "@READ1\nATCG\n+\nIIII\n@READ2\nGGCC\n+\nIIII\n"

func TestCountFastqReads(t *testing.T) {
	dir := t.TempDir()

	t.Run("Plain", func(t *testing.T) {
		path := writeFile(t, dir, "reads.fastq", twoReadFastq)
		n, err := countFastqReads(path)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Gzipped", func(t *testing.T) {
		path := filepath.Join(dir, "reads.fastq.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gw := gzip.NewWriter(f)
		_, err = gw.Write([]byte(twoReadFastq))
		require.NoError(t, err)
		require.NoError(t, gw.Close())
		require.NoError(t, f.Close())

		n, err := countFastqReads(path)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("MissingTrailingNewline", func(t *testing.T) {
		path := writeFile(t, dir, "truncated.fastq", "@READ1\nATCG\n+\nIIII")
		n, err := countFastqReads(path)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.fastq")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		n, err := countFastqReads(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := countFastqReads(filepath.Join(dir, "nope.fastq"))
		assert.Error(t, err)
	})
}
