package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// writeMergedParquet converts the merged TSV into a Parquet file next to it,
// for downstream analysis tools that prefer columnar input. The fragment
// count column becomes int64; everything else stays string.
func writeMergedParquet(mergedPath string) (string, error) {
	columns, rows, err := readRawTable(mergedPath)
	if err != nil {
		return "", err
	}

	countIdx := indexOf(columns, "Nr_frag_direct_at_taxon")

	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if i == countIdx {
			typ = arrow.PrimitiveTypes.Int64
		}
		fields[i] = arrow.Field{Name: name, Type: typ}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, row := range rows {
		for i := range columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if i == countIdx {
				n, err := strconv.ParseInt(cell, 10, 64)
				if err != nil {
					return "", fmt.Errorf("parse fragment count %q: %w", cell, err)
				}
				builder.Field(i).(*array.Int64Builder).Append(n)
				continue
			}
			builder.Field(i).(*array.StringBuilder).Append(cell)
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	parquetPath := strings.TrimSuffix(mergedPath, ".tsv") + ".parquet"
	out, err := os.Create(parquetPath)
	if err != nil {
		return "", fmt.Errorf("create parquet output: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(table, out, table.NumRows(), props, pqarrow.DefaultWriterProps()); err != nil {
		return "", fmt.Errorf("write parquet: %w", err)
	}
	return parquetPath, nil
}

// readRawTable reads a TSV verbatim: no column renaming, no cell trimming.
func readRawTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open table: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, fmt.Errorf("read table header: %w", err)
		}
		return nil, nil, errors.New("table is empty")
	}
	columns := strings.Split(scanner.Text(), "\t")

	var rows [][]string
	for scanner.Scan() {
		rows = append(rows, strings.Split(scanner.Text(), "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan table: %w", err)
	}
	return columns, rows, nil
}
