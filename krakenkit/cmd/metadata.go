package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

var errNoMetadata = errors.New("no metadata available")

// metadataTable is the validated sample metadata. The first column of the
// source is always the join key, whatever its header says; the remaining
// columns keep their file order. Duplicate keys resolve to the first row.
type metadataTable struct {
	keyColumn string
	columns   []string
	rows      map[string][]string
}

func loadMetadata(path string) (*metadataTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("metadata file is empty")
	}
	header := records[0]
	if len(header) == 0 || header[0] == "" {
		return nil, errors.New("metadata has no sample ID column")
	}

	meta := &metadataTable{
		keyColumn: header[0],
		columns:   append([]string(nil), header[1:]...),
		rows:      make(map[string][]string, len(records)-1),
	}
	for _, rec := range records[1:] {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		if _, seen := meta.rows[rec[0]]; seen {
			continue
		}
		meta.rows[rec[0]] = append([]string(nil), rec[1:]...)
	}
	return meta, nil
}

// syntheticMetadata builds the one-column fallback table from discovered
// sample IDs, used when no metadata file is configured.
func syntheticMetadata(ids []string) *metadataTable {
	meta := &metadataTable{
		keyColumn: "Sample_IDs",
		rows:      make(map[string][]string, len(ids)),
	}
	for _, id := range ids {
		if _, seen := meta.rows[id]; seen {
			continue
		}
		meta.rows[id] = nil
	}
	return meta
}

// resolveMetadata applies the resolution order: an existing metadata file
// takes precedence, then the synthesized fallback, otherwise errNoMetadata.
func resolveMetadata(path string, fallback *metadataTable) (*metadataTable, error) {
	if path != "" && fileExists(path) {
		return loadMetadata(path)
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, errNoMetadata
}

func (m *metadataTable) has(id string) bool {
	_, ok := m.rows[id]
	return ok
}

// lookup returns the metadata values for id, padded to the column count so a
// short row never shifts the merged table.
func (m *metadataTable) lookup(id string) []string {
	row, ok := m.rows[id]
	if !ok {
		return nil
	}
	if len(row) >= len(m.columns) {
		return row[:len(m.columns)]
	}
	padded := make([]string, len(m.columns))
	copy(padded, row)
	return padded
}
