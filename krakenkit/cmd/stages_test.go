package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimmomaticArgs(t *testing.T) {
	out := "out"

	t.Run("Paired", func(t *testing.T) {
		args, fwd, rev := trimmomaticArgs("fwd.fastq.gz", "rev.fastq.gz", "sampleA", out, 8)
		assert.Equal(t, []string{
			"PE", "-threads", "8",
			"fwd.fastq.gz", "rev.fastq.gz",
			filepath.Join(out, "sampleA_trimmed_R1.fastq.gz"),
			filepath.Join(out, "sampleA_unpaired_R1.fastq.gz"),
			filepath.Join(out, "sampleA_trimmed_R2.fastq.gz"),
			filepath.Join(out, "sampleA_unpaired_R2.fastq.gz"),
			"LEADING:3", "TRAILING:3", "SLIDINGWINDOW:4:15", "MINLEN:36",
		}, args)
		assert.Equal(t, filepath.Join(out, "sampleA_trimmed_R1.fastq.gz"), fwd)
		assert.Equal(t, filepath.Join(out, "sampleA_trimmed_R2.fastq.gz"), rev)
	})

	t.Run("Single", func(t *testing.T) {
		args, fwd, rev := trimmomaticArgs("fwd.fastq.gz", "", "sampleA", out, 4)
		assert.Equal(t, []string{
			"SE", "-threads", "4",
			"fwd.fastq.gz",
			filepath.Join(out, "sampleA_trimmed_R1.fastq.gz"),
			"LEADING:3", "TRAILING:3", "SLIDINGWINDOW:4:15", "MINLEN:36",
		}, args)
		assert.Equal(t, filepath.Join(out, "sampleA_trimmed_R1.fastq.gz"), fwd)
		assert.Empty(t, rev)
	})
}

func TestBowtie2Args(t *testing.T) {
	out := "out"

	t.Run("Paired", func(t *testing.T) {
		args, fwd, rev := bowtie2Args("fwd.fastq.gz", "rev.fastq.gz", "sampleA", "host_idx", out, 8)
		assert.Equal(t, []string{
			"--threads", "8",
			"-x", "host_idx",
			"-1", "fwd.fastq.gz", "-2", "rev.fastq.gz",
			"--un-conc-gz", filepath.Join(out, "sampleA_unmapped_%.fastq.gz"),
			"-S", os.DevNull,
		}, args)
		assert.Equal(t, filepath.Join(out, "sampleA_unmapped_1.fastq.gz"), fwd)
		assert.Equal(t, filepath.Join(out, "sampleA_unmapped_2.fastq.gz"), rev)
	})

	t.Run("Single", func(t *testing.T) {
		args, fwd, rev := bowtie2Args("fwd.fastq.gz", "", "sampleA", "host_idx", out, 8)
		assert.Equal(t, []string{
			"--threads", "8",
			"-x", "host_idx",
			"-U", "fwd.fastq.gz",
			"--un-gz", filepath.Join(out, "sampleA_unmapped_1.fastq.gz"),
			"-S", os.DevNull,
		}, args)
		assert.Equal(t, filepath.Join(out, "sampleA_unmapped_1.fastq.gz"), fwd)
		assert.Empty(t, rev)
	})
}

func TestKraken2Args(t *testing.T) {
	out := "out"

	t.Run("Paired", func(t *testing.T) {
		args, report := kraken2Args("fwd.fastq.gz", "rev.fastq.gz", "sampleA", "db", out, 8)
		assert.Equal(t, []string{
			"--db", "db",
			"--threads", "8",
			"--report", filepath.Join(out, "sampleA_report.txt"),
			"--output", filepath.Join(out, "sampleA_kraken.txt"),
			"--paired", "--gzip-compressed", "fwd.fastq.gz", "rev.fastq.gz",
		}, args)
		assert.Equal(t, filepath.Join(out, "sampleA_report.txt"), report)
	})

	t.Run("Single", func(t *testing.T) {
		args, _ := kraken2Args("fwd.fastq.gz", "", "sampleA", "db", out, 8)
		assert.Equal(t, []string{
			"--db", "db",
			"--threads", "8",
			"--report", filepath.Join(out, "sampleA_report.txt"),
			"--output", filepath.Join(out, "sampleA_kraken.txt"),
			"--gzip-compressed", "fwd.fastq.gz",
		}, args)
	})
}

func TestRunToolMissingBinary(t *testing.T) {
	err := runTool("krakenkit-no-such-tool", nil)
	assert.Error(t, err)
}
