package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ytscribe/storage"
)

// FailedVideo describes one permanently failed extraction for the summary
// report.
type FailedVideo struct {
	VideoID string
	Title   string
	Error   string
}

// WriteSummary writes the extraction summary report from catalog entries
// and the list of permanent failures.
func (w *Writer) WriteSummary(entries []CatalogEntry, failed []FailedVideo) (string, error) {
	path := filepath.Join(w.baseDir, SummaryFileName)

	err := storage.WriteAtomic(path, func(out io.Writer) error {
		return writeSummary(out, entries, failed, time.Now())
	})
	if err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	w.log.Info("extraction summary written")
	return path, nil
}

func writeSummary(out io.Writer, entries []CatalogEntry, failed []FailedVideo, now time.Time) error {
	total := len(entries)
	successful := 0
	totalWords := 0
	tractateCounts := make(map[string]int)
	languageCounts := make(map[string]int)

	for _, e := range entries {
		if e.Status == "success" {
			successful++
		}
		totalWords += e.WordCount
		tractateCounts[orUnknown(e.Tractate)]++
		languageCounts[orUnknown(e.Language)]++
	}

	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 30)

	fmt.Fprintf(out, "MERCAZ DAF YOMI TRANSCRIPT EXTRACTION SUMMARY\n%s\n\n", rule)
	fmt.Fprintf(out, "Extraction completed: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Total videos processed: %d\n", total)
	fmt.Fprintf(out, "Successful extractions: %d\n", successful)
	fmt.Fprintf(out, "Failed extractions: %d\n", len(failed))
	if total > 0 {
		fmt.Fprintf(out, "Success rate: %.1f%%\n", float64(successful)/float64(total)*100)
	}

	fmt.Fprintf(out, "\nTRACTATE BREAKDOWN:\n%s\n", thin)
	for _, k := range sortedKeys(tractateCounts) {
		fmt.Fprintf(out, "%s: %d videos\n", k, tractateCounts[k])
	}

	fmt.Fprintf(out, "\nLANGUAGE BREAKDOWN:\n%s\n", thin)
	for _, k := range sortedKeys(languageCounts) {
		fmt.Fprintf(out, "%s: %d videos\n", k, languageCounts[k])
	}

	fmt.Fprintf(out, "\nCONTENT STATISTICS:\n%s\n", thin)
	fmt.Fprintf(out, "Total words extracted: %d\n", totalWords)
	if total > 0 {
		fmt.Fprintf(out, "Average words per video: %d\n", totalWords/total)
	}

	if len(failed) > 0 {
		fmt.Fprintf(out, "\nFAILED VIDEOS:\n%s\n", thin)
		for _, f := range failed {
			fmt.Fprintf(out, "- %s (%s): %s\n", f.Title, f.VideoID, f.Error)
		}
	}

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
