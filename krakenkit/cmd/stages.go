package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// The three stage runners wrap external tools. Each assembles the argument
// list, invokes the tool synchronously and returns the convention-named output
// paths so downstream stages can locate them without a registry. A non-zero
// exit is propagated as an error; callers decide whether the sample or the
// whole run dies.

func runTool(name string, args []string) error {
	logf("Running command: %s %s", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Trimmomatic quality-trims the raw reads. The filter steps are fixed; they
// mirror the values the pipeline has always shipped with.
var trimmomaticSteps = []string{"LEADING:3", "TRAILING:3", "SLIDINGWINDOW:4:15", "MINLEN:36"}

func trimmomaticArgs(forward, reverse, base, outDir string, threads int) (args []string, trimmedFwd, trimmedRev string) {
	trimmedFwd = filepath.Join(outDir, base+"_trimmed_R1.fastq.gz")
	if reverse != "" {
		trimmedRev = filepath.Join(outDir, base+"_trimmed_R2.fastq.gz")
		unpairedFwd := filepath.Join(outDir, base+"_unpaired_R1.fastq.gz")
		unpairedRev := filepath.Join(outDir, base+"_unpaired_R2.fastq.gz")
		args = append([]string{
			"PE", "-threads", strconv.Itoa(threads),
			forward, reverse,
			trimmedFwd, unpairedFwd,
			trimmedRev, unpairedRev,
		}, trimmomaticSteps...)
		return args, trimmedFwd, trimmedRev
	}
	args = append([]string{
		"SE", "-threads", strconv.Itoa(threads),
		forward, trimmedFwd,
	}, trimmomaticSteps...)
	return args, trimmedFwd, ""
}

func runTrimmomatic(forward, reverse, base, outDir string, threads int) (string, string, error) {
	args, trimmedFwd, trimmedRev := trimmomaticArgs(forward, reverse, base, outDir, threads)
	if err := runTool("trimmomatic", args); err != nil {
		return "", "", fmt.Errorf("trim %s: %w", base, err)
	}
	return trimmedFwd, trimmedRev, nil
}

// Bowtie2 depletes host reads by aligning against the host index and keeping
// only the unaligned reads. Alignments themselves are discarded.
func bowtie2Args(forward, reverse, base, index, outDir string, threads int) (args []string, unmappedFwd, unmappedRev string) {
	unmappedFwd = filepath.Join(outDir, base+"_unmapped_1.fastq.gz")
	if reverse != "" {
		unmappedRev = filepath.Join(outDir, base+"_unmapped_2.fastq.gz")
		args = []string{
			"--threads", strconv.Itoa(threads),
			"-x", index,
			"-1", forward, "-2", reverse,
			"--un-conc-gz", filepath.Join(outDir, base+"_unmapped_%.fastq.gz"),
			"-S", os.DevNull,
		}
		return args, unmappedFwd, unmappedRev
	}
	args = []string{
		"--threads", strconv.Itoa(threads),
		"-x", index,
		"-U", forward,
		"--un-gz", unmappedFwd,
		"-S", os.DevNull,
	}
	return args, unmappedFwd, ""
}

func runBowtie2(forward, reverse, base, index, outDir string, threads int) (string, string, error) {
	args, unmappedFwd, unmappedRev := bowtie2Args(forward, reverse, base, index, outDir, threads)
	if err := runTool("bowtie2", args); err != nil {
		return "", "", fmt.Errorf("deplete %s: %w", base, err)
	}
	return unmappedFwd, unmappedRev, nil
}

const reportSuffix = "_report.txt"

func reportPath(outDir, base string) string {
	return filepath.Join(outDir, base+reportSuffix)
}

// Kraken2 classifies reads against the database and writes the per-sample
// report the aggregator consumes.
func kraken2Args(forward, reverse, base, db, outDir string, threads int) (args []string, report string) {
	report = reportPath(outDir, base)
	output := filepath.Join(outDir, base+"_kraken.txt")
	args = []string{
		"--db", db,
		"--threads", strconv.Itoa(threads),
		"--report", report,
		"--output", output,
	}
	if reverse != "" {
		args = append(args, "--paired", "--gzip-compressed", forward, reverse)
	} else {
		args = append(args, "--gzip-compressed", forward)
	}
	return args, report
}

func runKraken2(forward, reverse, base, db, outDir string, threads int) (string, error) {
	args, report := kraken2Args(forward, reverse, base, db, outDir, threads)
	if err := runTool("kraken2", args); err != nil {
		return "", fmt.Errorf("classify %s: %w", base, err)
	}
	return report, nil
}
