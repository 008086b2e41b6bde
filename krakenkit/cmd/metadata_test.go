package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "metadata.csv",
		"PatientID,Group,Age\nsampleA,Control,34\nsampleA,Case,99\nsampleB,Case,40\n")

	meta, err := loadMetadata(path)
	require.NoError(t, err)

	assert.Equal(t, "PatientID", meta.keyColumn, "first column is the key whatever its name")
	assert.Equal(t, []string{"Group", "Age"}, meta.columns)
	assert.True(t, meta.has("sampleA"))
	assert.True(t, meta.has("sampleB"))
	assert.False(t, meta.has("sampleC"))
	assert.Equal(t, []string{"Control", "34"}, meta.lookup("sampleA"), "first match wins on duplicate keys")
}

func TestLoadMetadataErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		_, err := loadMetadata(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		path := writeFile(t, dir, "empty.csv", "")
		_, err := loadMetadata(path)
		assert.Error(t, err)
	})
}

func TestLookupPadsShortRows(t *testing.T) {
	meta := &metadataTable{
		keyColumn: "Sample_IDs",
		columns:   []string{"Group", "Site"},
		rows:      map[string][]string{"s1": {"Control"}},
	}
	assert.Equal(t, []string{"Control", ""}, meta.lookup("s1"))
	assert.Nil(t, meta.lookup("missing"))
}

func TestSyntheticMetadata(t *testing.T) {
	meta := syntheticMetadata([]string{"a", "b", "a"})
	assert.Equal(t, "Sample_IDs", meta.keyColumn)
	assert.Empty(t, meta.columns)
	assert.True(t, meta.has("a"))
	assert.True(t, meta.has("b"))
	assert.Len(t, meta.rows, 2)
}

func TestResolveMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "metadata.csv", "Sample_IDs,Group\nsampleA,Control\n")
	fallback := syntheticMetadata([]string{"x"})

	t.Run("FilePrecedence", func(t *testing.T) {
		meta, err := resolveMetadata(path, fallback)
		require.NoError(t, err)
		assert.Equal(t, []string{"Group"}, meta.columns)
	})

	t.Run("FallbackWhenFileMissing", func(t *testing.T) {
		meta, err := resolveMetadata(filepath.Join(dir, "nope.csv"), fallback)
		require.NoError(t, err)
		assert.True(t, meta.has("x"))
	})

	t.Run("NoMetadataAtAll", func(t *testing.T) {
		_, err := resolveMetadata("", nil)
		assert.ErrorIs(t, err, errNoMetadata)
	})
}
