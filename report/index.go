package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ytscribe/storage"
)

// seriesStats aggregates the transcript files inside one series directory.
type seriesStats struct {
	FileCount int
	TotalSize int64
	Files     []fileInfo
}

type fileInfo struct {
	Name string
	Size int64
}

// tractateStats aggregates one tractate directory.
type tractateStats struct {
	TotalFiles int
	TotalSize  int64
	Series     map[string]*seriesStats
}

// inventory is a scan of the organized transcript tree.
type inventory struct {
	TotalFiles int
	TotalSize  int64
	Tractates  map[string]*tractateStats
}

// skippedDirs are top-level directories that hold reports rather than
// transcripts.
var skippedDirs = map[string]bool{"Logs": true, "Reports": true}

// scanTree walks the output tree and collects per-tractate statistics.
func scanTree(baseDir string) (*inventory, error) {
	inv := &inventory{Tractates: make(map[string]*tractateStats)}

	tractateDirs, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan tree: %w", err)
	}

	for _, td := range tractateDirs {
		if !td.IsDir() || skippedDirs[td.Name()] {
			continue
		}

		ts := &tractateStats{Series: make(map[string]*seriesStats)}
		seriesDirs, err := os.ReadDir(filepath.Join(baseDir, td.Name()))
		if err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}

		for _, sd := range seriesDirs {
			if !sd.IsDir() {
				continue
			}
			ss := &seriesStats{}
			files, err := os.ReadDir(filepath.Join(baseDir, td.Name(), sd.Name()))
			if err != nil {
				return nil, fmt.Errorf("scan tree: %w", err)
			}
			for _, f := range files {
				if f.IsDir() || !strings.HasSuffix(f.Name(), ".txt") {
					continue
				}
				fi, err := f.Info()
				if err != nil {
					continue
				}
				ss.FileCount++
				ss.TotalSize += fi.Size()
				ss.Files = append(ss.Files, fileInfo{Name: f.Name(), Size: fi.Size()})
			}
			sort.Slice(ss.Files, func(i, j int) bool { return ss.Files[i].Name < ss.Files[j].Name })
			ts.Series[sd.Name()] = ss
			ts.TotalFiles += ss.FileCount
			ts.TotalSize += ss.TotalSize
		}

		if ts.TotalFiles > 0 {
			inv.Tractates[td.Name()] = ts
			inv.TotalFiles += ts.TotalFiles
			inv.TotalSize += ts.TotalSize
		}
	}

	return inv, nil
}

// WriteIndexes scans the transcript tree and writes the master index plus
// one index per tractate directory.
func (w *Writer) WriteIndexes() error {
	inv, err := scanTree(w.baseDir)
	if err != nil {
		return err
	}

	path := filepath.Join(w.baseDir, IndexFileName)
	err = storage.WriteAtomic(path, func(out io.Writer) error {
		return writeMasterIndex(out, inv, time.Now())
	})
	if err != nil {
		return fmt.Errorf("write master index: %w", err)
	}

	for _, name := range sortedTractates(inv) {
		ts := inv.Tractates[name]
		idxPath := filepath.Join(w.baseDir, name, name+"_INDEX.md")
		err := storage.WriteAtomic(idxPath, func(out io.Writer) error {
			return writeTractateIndex(out, name, ts, time.Now())
		})
		if err != nil {
			return fmt.Errorf("write index for %s: %w", name, err)
		}
	}

	w.log.WithField("tractates", len(inv.Tractates)).Info("indexes written")
	return nil
}

func writeMasterIndex(out io.Writer, inv *inventory, now time.Time) error {
	fmt.Fprintf(out, "# Mercaz Daf Yomi - Master Transcript Index\n\n")
	fmt.Fprintf(out, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(out, "## Summary Statistics\n\n")
	fmt.Fprintf(out, "- **Total Files**: %d\n", inv.TotalFiles)
	fmt.Fprintf(out, "- **Total Size**: %.1f MB\n", float64(inv.TotalSize)/(1024*1024))
	fmt.Fprintf(out, "- **Tractates Covered**: %d\n\n", len(inv.Tractates))

	fmt.Fprintf(out, "## Tractate Breakdown\n\n")
	seriesTotals := make(map[string]int)
	for _, name := range sortedTractates(inv) {
		ts := inv.Tractates[name]
		fmt.Fprintf(out, "### %s (%d files)\n\n", name, ts.TotalFiles)
		for _, series := range sortedSeries(ts) {
			ss := ts.Series[series]
			if ss.FileCount == 0 {
				continue
			}
			fmt.Fprintf(out, "- **%s**: %d files (%.1f KB)\n", series, ss.FileCount, float64(ss.TotalSize)/1024)
			seriesTotals[series] += ss.FileCount
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "## Series Type Summary\n\n")
	for _, k := range sortedKeys(seriesTotals) {
		fmt.Fprintf(out, "- **%s**: %d files\n", k, seriesTotals[k])
	}

	fmt.Fprintf(out, "\n## Directory Structure\n\n```\n")
	for _, name := range sortedTractates(inv) {
		fmt.Fprintf(out, "├── %s/\n", name)
		for _, series := range sortedSeries(inv.Tractates[name]) {
			if inv.Tractates[name].Series[series].FileCount > 0 {
				fmt.Fprintf(out, "│   ├── %s/\n", series)
			}
		}
	}
	fmt.Fprintf(out, "└── %s\n```\n", IndexFileName)

	return nil
}

func writeTractateIndex(out io.Writer, name string, ts *tractateStats, now time.Time) error {
	fmt.Fprintf(out, "# %s - Transcript Index\n\n", name)
	fmt.Fprintf(out, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	for _, series := range sortedSeries(ts) {
		ss := ts.Series[series]
		if ss.FileCount == 0 {
			continue
		}
		fmt.Fprintf(out, "## %s (%d files)\n\n", series, ss.FileCount)
		for _, f := range ss.Files {
			fmt.Fprintf(out, "- `%s/%s` (%.1f KB)\n", series, f.Name, float64(f.Size)/1024)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "---\n**Total Files in %s: %d**\n", name, ts.TotalFiles)
	return nil
}

func sortedTractates(inv *inventory) []string {
	keys := make([]string, 0, len(inv.Tractates))
	for k := range inv.Tractates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSeries(ts *tractateStats) []string {
	keys := make([]string, 0, len(ts.Series))
	for k := range ts.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
