package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mortidx/mortidx/internal/logstats"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats [log-file]",
	Short: "Extract run statistics from a processing log",
	Long:  "Extract line counters and the run window from an indexation log. Defaults to the processing log inside the working directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&cfg.StatsMinDigits, "min-digits", cfg.StatsMinDigits, "Minimum digit run for counter extraction")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	setupLogging()

	logPath := cfg.LogPath()
	if len(args) == 1 {
		logPath = args[0]
	}

	extractor := logstats.NewExtractor(cfg.StatsMinDigits)
	stats, err := extractor.Extract(logPath)
	if err != nil {
		return err
	}

	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	fmt.Printf("Lines processed: %d\n", stats.LinesProcessed)
	fmt.Printf("Lines written:   %d\n", stats.LinesWritten)
	if stats.StartTime != "" {
		fmt.Printf("Started:         %s\n", stats.StartTime)
	}
	if stats.EndTime != "" {
		fmt.Printf("Finished:        %s\n", stats.EndTime)
	}

	return nil
}
