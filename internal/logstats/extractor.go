package logstats

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrLogFileMissing is returned when the processing log does not exist.
// Non-fatal to the overall run: the stats step is skipped and reported.
var ErrLogFileMissing = errors.New("processing log missing")

// Log line markers emitted by the indexation run. The completion marker
// carries the producer's typo; it must match byte for byte.
const (
	completionMarker = "successfully fininshed"
	endMarker        = "end of all"
)

// DefaultMinDigits is the minimum digit run recognized as a line counter.
// Short numbers (ports, percentages, dates) never reach this length.
const DefaultMinDigits = 7

// Stats is the record derived from one indexation run. Unmatched fields stay
// at their zero value; DocCount is attached separately from the index store.
type Stats struct {
	LinesProcessed int64  `json:"lines_processed"`
	LinesWritten   int64  `json:"lines_written"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`
	DocCount       *int64 `json:"doc_count,omitempty"`
}

// Extractor scans a processing log for counters and timestamps
type Extractor struct {
	counterRe *regexp.Regexp
}

// NewExtractor creates an extractor. minDigits is the minimum digit run for
// counter matching; values below 1 fall back to DefaultMinDigits.
func NewExtractor(minDigits int) *Extractor {
	if minDigits < 1 {
		minDigits = DefaultMinDigits
	}
	return &Extractor{
		counterRe: regexp.MustCompile(fmt.Sprintf(`\b\d{%d,}\b`, minDigits)),
	}
}

// Extract scans the log file at path and builds the run statistics.
// Lines that fail to match leave their fields empty; only a missing or
// unreadable file is an error.
func (e *Extractor) Extract(path string) (*Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLogFileMissing, path)
		}
		return nil, fmt.Errorf("failed to open processing log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var firstLine, lastCompletion, lastEnd string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			firstLine = line
			first = false
		}
		if strings.Contains(line, completionMarker) {
			lastCompletion = line
		}
		if strings.Contains(line, endMarker) {
			lastEnd = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processing log: %w", err)
	}

	stats := &Stats{
		StartTime: timestampOf(firstLine),
		EndTime:   timestampOf(lastEnd),
	}

	if lastCompletion != "" {
		counters := e.counterRe.FindAllString(lastCompletion, 2)
		if len(counters) >= 1 {
			stats.LinesProcessed, _ = strconv.ParseInt(counters[0], 10, 64)
		}
		if len(counters) >= 2 {
			stats.LinesWritten, _ = strconv.ParseInt(counters[1], 10, 64)
		}
	}

	return stats, nil
}

// timestampOf returns the date and time of a log line: its first two
// whitespace-delimited tokens.
func timestampOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[0] + " " + fields[1]
}
