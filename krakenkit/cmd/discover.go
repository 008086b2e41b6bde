package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sample is one sequencing unit discovered in the input directory. Reverse is
// empty for single-ended samples.
type sample struct {
	ID      string
	Forward string
	Reverse string
}

// forwardSuffixes lists the tolerated forward-read naming variants, longest
// first so that sample IDs are derived against the most specific match.
var forwardSuffixes = []string{
	"_R1_001.fastq.gz",
	"_R1_001.fastq",
	"_R1.fastq.gz",
	"_R1.fastq",
	"R1.fastq.gz",
	"R1.fastq",
}

// discoverSamples scans dir for forward reads, derives sample IDs from the
// filename suffix conventions and probes the matching R2 candidates. Samples
// come back sorted by ID; the first forward match per ID wins.
func discoverSamples(dir string) ([]sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	byID := make(map[string]sample)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		suffix := matchForwardSuffix(name)
		if suffix == "" {
			continue
		}
		id := strings.TrimSuffix(name, suffix)
		if id == "" {
			continue
		}
		if _, seen := byID[id]; seen {
			continue
		}
		byID[id] = sample{
			ID:      id,
			Forward: filepath.Join(dir, name),
			Reverse: findMate(dir, id),
		}
	}

	samples := make([]sample, 0, len(byID))
	for _, s := range byID {
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].ID < samples[j].ID })
	return samples, nil
}

func matchForwardSuffix(name string) string {
	for _, suffix := range forwardSuffixes {
		if strings.HasSuffix(name, suffix) {
			return suffix
		}
	}
	return ""
}

// findMate probes the whole R2 suffix family; no hit means single-ended.
func findMate(dir, id string) string {
	for _, suffix := range forwardSuffixes {
		candidate := filepath.Join(dir, id+strings.Replace(suffix, "R1", "R2", 1))
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func sampleIDs(samples []sample) []string {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	return ids
}

func runSamples(args []string) {
	fs := flag.NewFlagSet("samples", flag.ExitOnError)
	inputDir := fs.String("input-dir", "", "Directory containing input FASTQ files")
	counts := fs.Bool("counts", false, "Count reads per FASTQ file")
	progressOn := fs.Bool("progress", true, "Show progress bar when counting reads")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}

	if *inputDir == "" {
		fatalf("input-dir is required")
	}
	if !dirExists(*inputDir) {
		fatalf("input directory not found: %s", *inputDir)
	}

	samples, err := discoverSamples(*inputDir)
	if err != nil {
		fatalf("discover samples failed: %v", err)
	}
	if len(samples) == 0 {
		warnf("no samples found in %s", *inputDir)
		return
	}

	bar := newProgress(len(samples), "counting reads", *counts && *progressOn)
	for _, s := range samples {
		layout := "paired"
		reverse := s.Reverse
		if reverse == "" {
			layout = "single"
			reverse = "-"
		}
		if *counts {
			n, err := countFastqReads(s.Forward)
			if err != nil {
				fatalf("count reads in %s failed: %v", s.Forward, err)
			}
			fmt.Printf("%s\t%s\t%s\t%s\t%d\n", s.ID, layout, s.Forward, reverse, n)
			bar.increment()
			continue
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", s.ID, layout, s.Forward, reverse)
	}
	bar.finish()
}
