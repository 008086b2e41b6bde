package cmd

import (
	"errors"
	"flag"
	"os"
)

type pipelineConfig struct {
	KrakenDB       string
	Bowtie2Index   string
	InputDir       string
	OutDir         string
	Threads        int
	MetadataPath   string
	NoMetadata     bool
	ReadCount      int
	TopN           int
	NoBowtie2      bool
	UsePrecomputed bool
	Virus          bool
	Bacteria       bool
	PlotOutDir     string
	Parquet        bool
	Archive        bool
	Progress       bool
}

// depleteHost reports whether the Bowtie2 stage runs: an index must be
// configured and depletion not explicitly disabled.
func (c pipelineConfig) depleteHost() bool {
	return c.Bowtie2Index != "" && !c.NoBowtie2
}

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	krakenDB := fs.String("kraken-db", "", "Path to the Kraken2 database directory")
	bowtie2Index := fs.String("bowtie2-index", "", "Bowtie2 host index prefix (enables depletion)")
	inputDir := fs.String("input-dir", "", "Directory containing input FASTQ files")
	outDir := fs.String("outdir", "", "Directory for all pipeline outputs")
	threads := fs.Int("threads", 8, "Threads passed to Trimmomatic, Bowtie2 and Kraken2")
	metadataPath := fs.String("metadata", "", "Sample metadata CSV (first column is the sample ID)")
	noMetadata := fs.Bool("no-metadata", false, "Use discovered sample IDs instead of a metadata file")
	readCount := fs.Int("read-count", 0, "Minimum direct-fragment count to retain a row")
	topN := fs.Int("top-n", 0, "Keep only the N most frequent taxa per plot view (0 disables)")
	noBowtie2 := fs.Bool("no-bowtie2", false, "Skip Bowtie2 host depletion")
	usePrecomputed := fs.Bool("use-precomputed-reports", false, "Reuse Kraken2 reports already present in the output directory")
	virus := fs.Bool("virus", false, "Render the viral abundance view")
	bacteria := fs.Bool("bacteria", false, "Render the bacterial abundance view")
	plotOutDir := fs.String("plot-outdir", "", "Directory for chart PNGs (default: working directory)")
	parquetOut := fs.Bool("parquet", false, "Also write the merged table as Parquet")
	archiveOut := fs.Bool("archive", false, "Package the output directory as .tar.gz after the run")
	progressOn := fs.Bool("progress", true, "Show progress bars")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}

	cfg := pipelineConfig{
		KrakenDB:       *krakenDB,
		Bowtie2Index:   *bowtie2Index,
		InputDir:       *inputDir,
		OutDir:         *outDir,
		Threads:        *threads,
		MetadataPath:   *metadataPath,
		NoMetadata:     *noMetadata,
		ReadCount:      *readCount,
		TopN:           *topN,
		NoBowtie2:      *noBowtie2,
		UsePrecomputed: *usePrecomputed,
		Virus:          *virus,
		Bacteria:       *bacteria,
		PlotOutDir:     *plotOutDir,
		Parquet:        *parquetOut,
		Archive:        *archiveOut,
		Progress:       *progressOn,
	}

	// Configuration failures terminate the run; everything after this point
	// degrades per sample instead.
	if cfg.KrakenDB == "" {
		fatalf("kraken-db is required")
	}
	if !dirExists(cfg.KrakenDB) {
		fatalf("Kraken2 database directory not found: %s", cfg.KrakenDB)
	}
	if cfg.InputDir == "" {
		fatalf("input-dir is required")
	}
	if !dirExists(cfg.InputDir) {
		fatalf("input directory not found: %s", cfg.InputDir)
	}
	if cfg.OutDir == "" {
		fatalf("outdir is required")
	}
	if !cfg.NoMetadata && cfg.MetadataPath == "" {
		fatalf("metadata is required unless -no-metadata is set")
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fatalf("create output dir failed: %v", err)
	}

	samples, err := discoverSamples(cfg.InputDir)
	if err != nil {
		fatalf("discover samples failed: %v", err)
	}
	if len(samples) == 0 {
		warnf("no samples found in %s", cfg.InputDir)
	}

	bar := newProgress(len(samples), "processing samples", cfg.Progress)
	var processed int
	for _, s := range samples {
		report, err := processSample(cfg, s)
		if err != nil {
			warnf("sample %s failed: %v; skipping", s.ID, err)
			bar.increment()
			continue
		}
		logf("Sample %s -> %s", s.ID, report)
		processed++
		bar.increment()
	}
	bar.finish()
	logf("Processed %d of %d samples", processed, len(samples))

	var fallback *metadataTable
	if cfg.NoMetadata {
		fallback = syntheticMetadata(sampleIDs(samples))
	}
	meta, err := resolveMetadata(cfg.MetadataPath, fallback)
	if err != nil {
		fatalf("metadata: %v", err)
	}

	mergedPath, err := aggregateReports(cfg.OutDir, meta, cfg.ReadCount, cfg.Progress)
	if errors.Is(err, errNoRows) {
		warnf("no rows passed the filters; skipping plots")
		finishRun(cfg)
		return
	}
	if err != nil {
		fatalf("aggregate failed: %v", err)
	}
	logf("Merged table -> %s", mergedPath)

	if cfg.Parquet {
		parquetPath, err := writeMergedParquet(mergedPath)
		if err != nil {
			fatalf("parquet export failed: %v", err)
		}
		logf("Parquet table -> %s", parquetPath)
	}

	viral, bacterial := cfg.Virus, cfg.Bacteria
	if !viral && !bacterial {
		viral, bacterial = true, true
	}
	if cfg.PlotOutDir != "" {
		if err := os.MkdirAll(cfg.PlotOutDir, 0o755); err != nil {
			fatalf("create plot dir failed: %v", err)
		}
	}
	opts := plotOptions{TopN: cfg.TopN, OutDir: cfg.PlotOutDir}
	if err := generateAbundancePlots(mergedPath, viral, bacterial, opts); err != nil {
		fatalf("plot failed: %v", err)
	}

	finishRun(cfg)
}

func finishRun(cfg pipelineConfig) {
	if !cfg.Archive {
		return
	}
	archivePath := cfg.OutDir + ".tar.gz"
	logf("Packaging output -> %s", archivePath)
	if err := archiveDir(cfg.OutDir, archivePath, false); err != nil {
		fatalf("archive failed: %v", err)
	}
}
