package cmd

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	mergedTableName  = "merged_kraken.tsv"
	sampleIDsName    = "sample_ids.csv"
	writerBufferSize = 1 << 20
)

// errNoRows signals that aggregation retained nothing. It is an absence, not
// a failure: callers log a warning and skip plotting.
var errNoRows = errors.New("no aggregatable rows")

// speciesRanks is the permissive species-level rank set.
var speciesRanks = map[string]bool{"S": true, "S1": true, "S2": true, "S3": true}

// reportRow is one retained line of a Kraken2 report.
type reportRow struct {
	PercFragCover       string
	NrFragCover         string
	NrFragDirectAtTaxon int
	RankCode            string
	NCBIID              string
	ScientificName      string
	SampleID            string
}

var reportHeader = []string{
	"Perc_frag_cover",
	"Nr_frag_cover",
	"Nr_frag_direct_at_taxon",
	"Rank_code",
	"NCBI_ID",
	"Scientific_name",
	"SampleID",
}

// aggregateReports parses every report in dir, keeps species-level rows whose
// direct-fragment count meets the threshold and whose sample is present in
// the metadata, joins them with that sample's metadata row and writes the
// merged table plus the encountered-sample list. A later line for the same
// (sample, taxon) key overwrites the earlier one. Returns the merged table
// path, or errNoRows when nothing survived the filters.
func aggregateReports(dir string, meta *metadataTable, threshold int, progressOn bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read report dir: %w", err)
	}

	var reportFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), reportSuffix) {
			reportFiles = append(reportFiles, entry.Name())
		}
	}

	merged := make(map[string]reportRow)
	var order []string
	var encountered []string
	seenSamples := make(map[string]bool)

	bar := newProgress(len(reportFiles), "aggregating reports", progressOn)
	for _, name := range reportFiles {
		sampleID := strings.TrimSuffix(name, reportSuffix)
		if !seenSamples[sampleID] {
			seenSamples[sampleID] = true
			encountered = append(encountered, sampleID)
		}
		if err := scanReport(filepath.Join(dir, name), sampleID, meta, threshold, merged, &order); err != nil {
			return "", err
		}
		bar.increment()
	}
	bar.finish()

	if err := writeSampleIDs(filepath.Join(dir, sampleIDsName), encountered); err != nil {
		return "", err
	}

	if len(order) == 0 {
		return "", errNoRows
	}

	mergedPath := filepath.Join(dir, mergedTableName)
	if err := writeMergedTable(mergedPath, meta, merged, order); err != nil {
		return "", err
	}
	return mergedPath, nil
}

func scanReport(path, sampleID string, meta *metadataTable, threshold int, merged map[string]reportRow, order *[]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var lineNum int
	for scanner.Scan() {
		lineNum++
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
		if len(fields) < 6 {
			logf("Skipping malformed line %d in %s (%d fields)", lineNum, filepath.Base(path), len(fields))
			continue
		}

		rank := strings.TrimSpace(fields[3])
		if !speciesRanks[rank] {
			continue
		}
		direct, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			logf("Skipping line %d in %s: bad fragment count %q", lineNum, filepath.Base(path), fields[2])
			continue
		}
		if direct < threshold {
			continue
		}
		if !meta.has(sampleID) {
			continue
		}

		taxID := strings.TrimSpace(fields[4])
		key := sampleID + taxID
		if _, exists := merged[key]; !exists {
			*order = append(*order, key)
		}
		merged[key] = reportRow{
			PercFragCover:       strings.TrimSpace(fields[0]),
			NrFragCover:         strings.TrimSpace(fields[1]),
			NrFragDirectAtTaxon: direct,
			RankCode:            rank,
			NCBIID:              taxID,
			ScientificName:      strings.TrimSpace(fields[5]),
			SampleID:            sampleID,
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan report %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeMergedTable(path string, meta *metadataTable, merged map[string]reportRow, order []string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create merged table: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	writer := bufio.NewWriterSize(out, writerBufferSize)

	header := append(append([]string(nil), reportHeader...), meta.columns...)
	if _, err := writer.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, key := range order {
		row := merged[key]
		fields := append(make([]string, 0, len(header)),
			row.PercFragCover,
			row.NrFragCover,
			strconv.Itoa(row.NrFragDirectAtTaxon),
			row.RankCode,
			row.NCBIID,
			row.ScientificName,
			row.SampleID,
		)
		fields = append(fields, meta.lookup(row.SampleID)...)
		if _, err := writer.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush merged table: %w", err)
	}
	return nil
}

func writeSampleIDs(path string, ids []string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sample ID list: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	writer := bufio.NewWriter(out)
	if _, err := writer.WriteString("Sample_IDs\n"); err != nil {
		return fmt.Errorf("write sample ID header: %w", err)
	}
	for _, id := range ids {
		if _, err := writer.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("write sample ID: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush sample ID list: %w", err)
	}
	return nil
}

func runAggregate(args []string) {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	reportDir := fs.String("report-dir", "", "Directory containing Kraken2 reports")
	metadataPath := fs.String("metadata", "", "Sample metadata CSV (first column is the sample ID)")
	noMetadata := fs.Bool("no-metadata", false, "Synthesize metadata from sample IDs discovered in -input-dir")
	inputDir := fs.String("input-dir", "", "Input FASTQ directory (used with -no-metadata)")
	readCount := fs.Int("read-count", 0, "Minimum direct-fragment count to retain a row")
	parquetOut := fs.Bool("parquet", false, "Also write the merged table as Parquet")
	progressOn := fs.Bool("progress", true, "Show progress bar")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}

	if *reportDir == "" {
		fatalf("report-dir is required")
	}
	if !dirExists(*reportDir) {
		fatalf("report directory not found: %s", *reportDir)
	}
	if !*noMetadata && *metadataPath == "" {
		fatalf("metadata is required unless -no-metadata is set")
	}

	var fallback *metadataTable
	if *noMetadata {
		if *inputDir == "" {
			fatalf("input-dir is required with -no-metadata")
		}
		samples, err := discoverSamples(*inputDir)
		if err != nil {
			fatalf("discover samples failed: %v", err)
		}
		fallback = syntheticMetadata(sampleIDs(samples))
	}

	meta, err := resolveMetadata(*metadataPath, fallback)
	if err != nil {
		fatalf("metadata: %v", err)
	}

	mergedPath, err := aggregateReports(*reportDir, meta, *readCount, *progressOn)
	if errors.Is(err, errNoRows) {
		warnf("no rows passed the filters; merged table not written")
		return
	}
	if err != nil {
		fatalf("aggregate failed: %v", err)
	}
	logf("Merged table -> %s", mergedPath)

	if *parquetOut {
		parquetPath, err := writeMergedParquet(mergedPath)
		if err != nil {
			fatalf("parquet export failed: %v", err)
		}
		logf("Parquet table -> %s", parquetPath)
	}
}
