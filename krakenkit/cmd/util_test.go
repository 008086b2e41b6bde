package cmd

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "Empty", in: "", want: nil},
		{name: "Single", in: "a", want: []string{"a"}},
		{name: "Padded", in: " a , b ,", want: []string{"a", "b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitList(tc.in))
		})
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, fileExists(filepath.Join(dir, "nope")))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.False(t, fileExists(empty), "empty files do not count")

	assert.True(t, fileExists(writeFile(t, dir, "full", "x")))
	assert.True(t, dirExists(dir))
	assert.False(t, dirExists(empty))
}

func TestOpenInput(t *testing.T) {
	dir := t.TempDir()

	t.Run("Plain", func(t *testing.T) {
		path := writeFile(t, dir, "plain.txt", "hello")
		in, err := openInput(path)
		require.NoError(t, err)
		defer in.Close()
		data, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("Gzip", func(t *testing.T) {
		path := filepath.Join(dir, "data.txt.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gw := gzip.NewWriter(f)
		_, err = gw.Write([]byte("hello"))
		require.NoError(t, err)
		require.NoError(t, gw.Close())
		require.NoError(t, f.Close())

		in, err := openInput(path)
		require.NoError(t, err)
		defer in.Close()
		data, err := io.ReadAll(in)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})
}
