package cmd

import (
	"fmt"
	"os"
)

func Execute(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "run":
		runPipeline(args[1:])
	case "samples":
		runSamples(args[1:])
	case "aggregate":
		runAggregate(args[1:])
	case "plot":
		runPlot(args[1:])
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "KrakenKit - Trimmomatic/Bowtie2/Kraken2 abundance pipeline")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  krakenkit <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run        Full pipeline: trim -> deplete (optional) -> classify -> aggregate -> plot")
	fmt.Fprintln(os.Stderr, "  samples    List samples discovered in an input directory")
	fmt.Fprintln(os.Stderr, "  aggregate  Merge Kraken2 reports with sample metadata")
	fmt.Fprintln(os.Stderr, "  plot       Render abundance bar charts from a merged table")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'krakenkit <command> -h' for command-specific options.")
}
