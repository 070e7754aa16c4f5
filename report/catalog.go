// Package report generates the master catalog, extraction summary, and
// markdown indexes over an organized transcript tree.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ytscribe/internal/logger"
	"ytscribe/storage"
)

// Catalog and report file names within the output tree.
const (
	CatalogFileName = "master_catalog.csv"
	SummaryFileName = "extraction_summary.txt"
	IndexFileName   = "MASTER_INDEX.md"
)

// CatalogEntry is one row of the master catalog.
type CatalogEntry struct {
	VideoID         string
	Title           string
	URL             string
	PublishedAt     time.Time
	TranscriptFile  string
	TranscriptType  string
	Language        string
	WordCount       int
	DurationCovered float64
	Tractate        string
	Series          string
	Status          string
	ProcessedAt     time.Time
}

// Writer produces report files in the output tree.
type Writer struct {
	baseDir string
	log     *logger.Logger
}

// NewWriter creates a report writer rooted at the transcript tree.
func NewWriter(baseDir string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Default()
	}
	return &Writer{baseDir: baseDir, log: log.Component("report")}
}

var catalogHeader = []string{
	"video_id", "title", "url", "published_at",
	"transcript_file", "transcript_type", "language",
	"word_count", "duration_covered",
	"tractate", "series_type", "status", "processed_at",
}

// WriteCatalog writes the master catalog CSV atomically.
func (w *Writer) WriteCatalog(entries []CatalogEntry) (string, error) {
	path := filepath.Join(w.baseDir, CatalogFileName)

	err := storage.WriteAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(catalogHeader); err != nil {
			return err
		}
		for _, e := range entries {
			row := []string{
				e.VideoID,
				e.Title,
				e.URL,
				formatTime(e.PublishedAt),
				e.TranscriptFile,
				e.TranscriptType,
				e.Language,
				strconv.Itoa(e.WordCount),
				fmt.Sprintf("%.1f", e.DurationCovered),
				e.Tractate,
				e.Series,
				e.Status,
				formatTime(e.ProcessedAt),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}

	w.log.WithField("rows", len(entries)).Info("master catalog written")
	return path, nil
}

// MergeCatalog overlays entries onto the existing catalog file, matching
// rows by video ID. A missing catalog starts empty; an unreadable one is
// treated the same so a damaged catalog never blocks a run.
func (w *Writer) MergeCatalog(entries []CatalogEntry) []CatalogEntry {
	existing, err := ReadCatalog(filepath.Join(w.baseDir, CatalogFileName))
	if err != nil && !os.IsNotExist(err) {
		w.log.WithError(err).Warn("existing catalog unreadable, rebuilding from this run")
	}

	index := make(map[string]int, len(existing))
	merged := make([]CatalogEntry, len(existing))
	copy(merged, existing)
	for i, e := range merged {
		index[e.VideoID] = i
	}

	for _, e := range entries {
		if i, ok := index[e.VideoID]; ok {
			merged[i] = e
			continue
		}
		index[e.VideoID] = len(merged)
		merged = append(merged, e)
	}
	return merged
}

// ReadCatalog loads an existing master catalog.
func ReadCatalog(path string) ([]CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]CatalogEntry, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) != len(catalogHeader) {
			return nil, fmt.Errorf("catalog row has %d fields, want %d", len(row), len(catalogHeader))
		}
		wc, _ := strconv.Atoi(row[7])
		dc, _ := strconv.ParseFloat(row[8], 64)
		entries = append(entries, CatalogEntry{
			VideoID:         row[0],
			Title:           row[1],
			URL:             row[2],
			PublishedAt:     parseTime(row[3]),
			TranscriptFile:  row[4],
			TranscriptType:  row[5],
			Language:        row[6],
			WordCount:       wc,
			DurationCovered: dc,
			Tractate:        row[9],
			Series:          row[10],
			Status:          row[11],
			ProcessedAt:     parseTime(row[12]),
		})
	}
	return entries, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
