package cmd

import (
	"fmt"
	"io/fs"
)

// processSample runs one sample through the pipeline stages and returns the
// path of its Kraken2 report. With UsePrecomputed set the classification is
// skipped entirely and the report is expected to already sit at the
// conventional path. Any stage failure is terminal for the sample; there are
// no retries.
func processSample(cfg pipelineConfig, s sample) (string, error) {
	if cfg.UsePrecomputed {
		report := reportPath(cfg.OutDir, s.ID)
		if !fileExists(report) {
			return "", fmt.Errorf("precomputed report for %s: %w", s.ID, fs.ErrNotExist)
		}
		return report, nil
	}

	forward, reverse, err := runTrimmomatic(s.Forward, s.Reverse, s.ID, cfg.OutDir, cfg.Threads)
	if err != nil {
		return "", err
	}

	if cfg.depleteHost() {
		forward, reverse, err = runBowtie2(forward, reverse, s.ID, cfg.Bowtie2Index, cfg.OutDir, cfg.Threads)
		if err != nil {
			return "", err
		}
	}

	return runKraken2(forward, reverse, s.ID, cfg.KrakenDB, cfg.OutDir, cfg.Threads)
}
