// Package sink persists extracted transcripts into an organized file tree
// rooted at a base directory, one subdirectory per tractate and series.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"ytscribe/classify"
	"ytscribe/internal/logger"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// Record is one extracted transcript ready to be written out.
type Record struct {
	Video      youtube.VideoInfo
	Transcript *youtube.Transcript
	Class      classify.Classification
}

// WordCount returns the number of whitespace-separated words across all
// transcript entries.
func (r *Record) WordCount() int {
	if r.Transcript == nil {
		return 0
	}
	return len(strings.Fields(r.Transcript.Text()))
}

// DurationCovered returns the timestamp where the last caption ends,
// in seconds.
func (r *Record) DurationCovered() float64 {
	if r.Transcript == nil || len(r.Transcript.Entries) == 0 {
		return 0
	}
	last := r.Transcript.Entries[len(r.Transcript.Entries)-1]
	return last.Start + last.Duration
}

// WriteError indicates a transcript could not be persisted. Unlike fetch
// failures this does not count against the retry budget; the video is
// recorded as a permanent failure and the run moves on.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Sink persists extracted transcripts.
type Sink interface {
	// Save writes the record and returns the path it was stored at.
	// Failures are reported as *WriteError.
	Save(rec *Record) (string, error)
}

// FileSink writes transcripts into <base>/<Tractate>/<Series>/ with one
// text file per video.
type FileSink struct {
	baseDir string
	log     *logger.Logger
}

// NewFileSink creates a sink rooted at baseDir.
func NewFileSink(baseDir string, log *logger.Logger) *FileSink {
	if log == nil {
		log = logger.Default()
	}
	return &FileSink{
		baseDir: baseDir,
		log:     log.Component("sink"),
	}
}

// BaseDir returns the root of the output tree.
func (s *FileSink) BaseDir() string { return s.baseDir }

// Save writes the transcript file atomically. The file carries a metadata
// header, the plain transcript text, and the timed entries as JSON.
func (s *FileSink) Save(rec *Record) (string, error) {
	dir := filepath.Join(s.baseDir, rec.Class.Tractate, rec.Class.Series)
	path := filepath.Join(dir, SafeFilename(rec.Video.Title, rec.Video.ID))

	err := storage.WriteAtomic(path, func(w io.Writer) error {
		return writeTranscriptFile(w, rec)
	})
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	s.log.WithFields(map[string]interface{}{
		"video_id": rec.Video.ID,
		"tractate": rec.Class.Tractate,
		"words":    rec.WordCount(),
	}).Debug("transcript saved")

	return path, nil
}

func writeTranscriptFile(w io.Writer, rec *Record) error {
	kind := "manual"
	language := "unknown"
	if rec.Transcript != nil {
		language = rec.Transcript.Language
		if rec.Transcript.Generated {
			kind = "auto-generated"
		}
	}

	published := "Unknown"
	if !rec.Video.Published.IsZero() {
		published = rec.Video.Published.UTC().Format(time.RFC3339)
	}

	header := []struct{ key, value string }{
		{"Title", rec.Video.Title},
		{"Video ID", rec.Video.ID},
		{"URL", rec.Video.VideoURL()},
		{"Published", published},
		{"Tractate", rec.Class.Tractate},
		{"Series", rec.Class.Series},
		{"Transcript Type", kind},
		{"Language", language},
		{"Word Count", fmt.Sprintf("%d", rec.WordCount())},
		{"Duration Covered", fmt.Sprintf("%.1f seconds", rec.DurationCovered())},
	}
	for _, h := range header {
		if _, err := fmt.Fprintf(w, "%s: %s\n", h.key, h.value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", strings.Repeat("-", 80)); err != nil {
		return err
	}

	if rec.Transcript != nil {
		if _, err := io.WriteString(w, rec.Transcript.Text()); err != nil {
			return err
		}
	}

	rule := strings.Repeat("=", 80)
	if _, err := fmt.Fprintf(w, "\n\n%s\nSTRUCTURED TRANSCRIPT DATA (JSON)\n%s\n", rule, rule); err != nil {
		return err
	}

	var entries []youtube.TranscriptEntry
	if rec.Transcript != nil {
		entries = rec.Transcript.Entries
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(entries)
}
