package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ytscribe/internal/retry"
	"ytscribe/report"
	"ytscribe/sink"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// fakeLister serves a fixed ordered video list.
type fakeLister struct {
	videos []youtube.VideoInfo
	err    error
}

func (f *fakeLister) ListVideos(ctx context.Context, channel string, opts *youtube.ListOptions) ([]youtube.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.videos
	if opts != nil && opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out, nil
}

// scriptedSource returns per-video error scripts, one entry per call.
// After the script is exhausted, calls succeed.
type scriptedSource struct {
	mu     sync.Mutex
	script map[string][]error
	calls  map[string]int
}

func newScriptedSource(script map[string][]error) *scriptedSource {
	return &scriptedSource{script: script, calls: make(map[string]int)}
}

func (s *scriptedSource) Fetch(ctx context.Context, videoID string) (*youtube.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls[videoID]
	s.calls[videoID] = n + 1

	if steps := s.script[videoID]; n < len(steps) && steps[n] != nil {
		return nil, steps[n]
	}
	return &youtube.Transcript{
		VideoID:  videoID,
		Language: "en",
		Entries:  []youtube.TranscriptEntry{{Start: 0, Duration: 1, Text: "daf yomi class"}},
	}, nil
}

func (s *scriptedSource) callCount(videoID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[videoID]
}

// failingSink always fails, standing in for a broken output directory.
type failingSink struct {
	// failID limits failures to one video; empty fails every save.
	failID string
	inner  sink.Sink
}

func (s failingSink) Save(rec *sink.Record) (string, error) {
	if s.failID == "" || rec.Video.ID == s.failID {
		return "", &sink.WriteError{Path: "/broken", Err: errors.New("disk full")}
	}
	return s.inner.Save(rec)
}

func testVideos(n int) []youtube.VideoInfo {
	out := make([]youtube.VideoInfo, n)
	for i := range out {
		id := fmt.Sprintf("video%06d", i+1)
		out[i] = youtube.VideoInfo{
			ID:        id,
			Title:     fmt.Sprintf("Berachos Daf %d - Daf Yomi", i+2),
			Published: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
	}
	return out
}

type testEnv struct {
	dir    string
	store  *storage.JSONProgressStore
	logPth string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewJSONProgressStore(filepath.Join(dir, "progress.json"))
	if err != nil {
		t.Fatalf("open progress store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &testEnv{dir: dir, store: store, logPth: filepath.Join(dir, "attempts.jsonl")}
}

func (e *testEnv) runner(t *testing.T, lister youtube.VideoLister, source youtube.TranscriptSource, snk sink.Sink) *Runner {
	t.Helper()
	if snk == nil {
		snk = sink.NewFileSink(filepath.Join(e.dir, "out"), nil)
	}
	attempts, err := storage.NewAttemptLog(e.logPth)
	if err != nil {
		t.Fatalf("open attempt log: %v", err)
	}
	t.Cleanup(func() { attempts.Close() })

	r, err := NewRunner(Deps{
		Lister:   lister,
		Source:   source,
		Sink:     snk,
		Store:    e.store,
		Attempts: attempts,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func fastOpts() Options {
	return Options{
		Channel:   "@testchannel",
		BatchSize: 2,
		Retry:     retry.Config{MaxAttempts: 3, BaseDelay: 0},
	}
}

func TestRun_CompletesAndPartitions(t *testing.T) {
	env := newTestEnv(t)
	videos := testVideos(5)
	source := newScriptedSource(map[string][]error{
		// video 3 has no transcript at all.
		"video000003": {youtube.ErrTranscriptUnavailable},
	})
	r := env.runner(t, &fakeLister{videos: videos}, source, nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", sum.Status)
	}
	if sum.Succeeded != 4 || sum.Failed != 1 || sum.Skipped != 0 {
		t.Errorf("counts = %d/%d/%d, want 4 succeeded, 1 failed, 0 skipped", sum.Succeeded, sum.Failed, sum.Skipped)
	}
	if sum.Batches != 3 {
		t.Errorf("Batches = %d, want 3", sum.Batches)
	}

	state, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Every video ends in exactly one of the two sets.
	for _, v := range videos {
		completed := state.IsCompleted(v.ID)
		failed := state.IsFailed(v.ID)
		if completed == failed {
			t.Errorf("video %s: completed=%v failed=%v, want exactly one", v.ID, completed, failed)
		}
	}
	if !state.IsFailed("video000003") {
		t.Error("video000003 should be a permanent failure")
	}
	if state.LastBatchIndex != 3 || state.TotalProcessed != 5 {
		t.Errorf("state counters = batch %d, processed %d", state.LastBatchIndex, state.TotalProcessed)
	}

	// A no-transcript video is not retried.
	if got := source.callCount("video000003"); got != 1 {
		t.Errorf("video000003 fetched %d times, want 1", got)
	}

	// Successful videos land in the output tree.
	matches, _ := filepath.Glob(filepath.Join(env.dir, "out", "Berachos", "Daf_Yomi", "*.txt"))
	if len(matches) != 4 {
		t.Errorf("output tree has %d transcripts, want 4", len(matches))
	}
}

func TestRun_ResumeSkipsDone(t *testing.T) {
	env := newTestEnv(t)
	videos := testVideos(4)
	source := newScriptedSource(map[string][]error{
		"video000002": {youtube.ErrTranscriptUnavailable},
	})
	r := env.runner(t, &fakeLister{videos: videos}, source, nil)

	if _, err := r.Run(context.Background(), fastOpts()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	sum, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if sum.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", sum.Status)
	}
	if sum.Skipped != 4 || sum.Succeeded != 0 || sum.Failed != 0 {
		t.Errorf("resume counts = skipped %d, succeeded %d, failed %d; want all skipped",
			sum.Skipped, sum.Succeeded, sum.Failed)
	}

	// No video was fetched again, including the permanent failure.
	for _, v := range videos {
		if got := source.callCount(v.ID); got != 1 {
			t.Errorf("video %s fetched %d times total, want 1", v.ID, got)
		}
	}
}

func TestRun_NoResumeRefetchesEverything(t *testing.T) {
	env := newTestEnv(t)
	videos := testVideos(3)
	source := newScriptedSource(nil)
	r := env.runner(t, &fakeLister{videos: videos}, source, nil)

	if _, err := r.Run(context.Background(), fastOpts()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	opts := fastOpts()
	opts.NoResume = true
	sum, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("no-resume Run() error = %v", err)
	}
	if sum.Skipped != 0 || sum.Succeeded != 3 {
		t.Errorf("no-resume counts = skipped %d, succeeded %d; want 0 skipped, 3 succeeded",
			sum.Skipped, sum.Succeeded)
	}
	for _, v := range videos {
		if got := source.callCount(v.ID); got != 2 {
			t.Errorf("video %s fetched %d times total, want 2", v.ID, got)
		}
	}

	state, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.TotalProcessed != 3 {
		t.Errorf("TotalProcessed = %d, want 3 (prior counters discarded)", state.TotalProcessed)
	}
}

func TestRun_ResumeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner(t, &fakeLister{videos: testVideos(3)}, newScriptedSource(nil), nil)

	if _, err := r.Run(context.Background(), fastOpts()); err != nil {
		t.Fatal(err)
	}
	before, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background(), fastOpts()); err != nil {
		t.Fatal(err)
	}
	after, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(after.Completed) != len(before.Completed) ||
		len(after.PermanentFailures) != len(before.PermanentFailures) ||
		after.LastBatchIndex != before.LastBatchIndex ||
		after.TotalProcessed != before.TotalProcessed {
		t.Errorf("no-op resume changed state: before %+v, after %+v", before, after)
	}
}

func TestRun_TransientTwiceThenSuccess(t *testing.T) {
	env := newTestEnv(t)
	source := newScriptedSource(map[string][]error{
		"video000001": {youtube.ErrSourceUnavailable, youtube.ErrSourceUnavailable, nil},
	})
	r := env.runner(t, &fakeLister{videos: testVideos(1)}, source, nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Errorf("counts = %d/%d, want 1 success", sum.Succeeded, sum.Failed)
	}
	if got := source.callCount("video000001"); got != 3 {
		t.Errorf("fetched %d times, want 3", got)
	}

	records, err := storage.ReadAttemptLog(env.logPth)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("attempt log has %d records, want 3", len(records))
	}
	wantOutcomes := []storage.Outcome{storage.OutcomeTransient, storage.OutcomeTransient, storage.OutcomeSuccess}
	for i, rec := range records {
		if rec.Outcome != wantOutcomes[i] {
			t.Errorf("attempt %d outcome = %s, want %s", i+1, rec.Outcome, wantOutcomes[i])
		}
		if rec.Attempt != i+1 {
			t.Errorf("attempt number = %d, want %d", rec.Attempt, i+1)
		}
		if rec.RunID != sum.RunID {
			t.Errorf("attempt run ID = %s, want %s", rec.RunID, sum.RunID)
		}
	}
}

func TestRun_RetriesExhaustedMarksPermanent(t *testing.T) {
	env := newTestEnv(t)
	source := newScriptedSource(map[string][]error{
		"video000001": {youtube.ErrSourceUnavailable, youtube.ErrSourceUnavailable, youtube.ErrSourceUnavailable},
	})
	r := env.runner(t, &fakeLister{videos: testVideos(1)}, source, nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Status != StatusCompleted || sum.Failed != 1 {
		t.Errorf("Status = %s, Failed = %d; want completed with 1 failure", sum.Status, sum.Failed)
	}
	if got := source.callCount("video000001"); got != 3 {
		t.Errorf("fetched %d times, want exactly the attempt budget", got)
	}

	state, _ := env.store.Load(context.Background())
	if !state.IsFailed("video000001") {
		t.Error("video should be marked permanently failed")
	}
}

func TestRun_BlockedHaltsRun(t *testing.T) {
	env := newTestEnv(t)
	videos := testVideos(5)
	source := newScriptedSource(map[string][]error{
		"video000003": {youtube.ErrBlocked},
	})
	r := env.runner(t, &fakeLister{videos: videos}, source, nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if !errors.Is(err, youtube.ErrBlocked) {
		t.Fatalf("Run() error = %v, want ErrBlocked", err)
	}
	if sum.Status != StatusHaltedThrottle {
		t.Errorf("Status = %s, want halted_throttle", sum.Status)
	}
	if sum.BlockedAt != "video000003" {
		t.Errorf("BlockedAt = %s, want video000003", sum.BlockedAt)
	}
	if sum.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2 (first batch)", sum.Succeeded)
	}

	state, loadErr := env.store.Load(context.Background())
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if !state.IsCompleted("video000001") || !state.IsCompleted("video000002") {
		t.Error("first batch should be checkpointed as completed")
	}
	// The blocked video stays pending for the next run.
	if state.IsDone("video000003") {
		t.Error("blocked video must not be marked done")
	}
	// Later videos were never touched.
	for _, id := range []string{"video000004", "video000005"} {
		if got := source.callCount(id); got != 0 {
			t.Errorf("video %s fetched %d times after halt, want 0", id, got)
		}
	}

	// A retried run picks up from the blocked video.
	sum2, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	if sum2.Skipped != 2 || sum2.Succeeded != 3 {
		t.Errorf("resume counts = skipped %d, succeeded %d; want 2/3", sum2.Skipped, sum2.Succeeded)
	}
}

func TestRun_WriteFailureIsPermanentForItem(t *testing.T) {
	env := newTestEnv(t)
	source := newScriptedSource(nil)
	snk := failingSink{
		failID: "video000001",
		inner:  sink.NewFileSink(filepath.Join(env.dir, "out"), nil),
	}
	r := env.runner(t, &fakeLister{videos: testVideos(3)}, source, snk)

	sum, err := r.Run(context.Background(), fastOpts())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed (one bad write does not end the run)", sum.Status)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("counts = succeeded %d, failed %d; want 2 and 1", sum.Succeeded, sum.Failed)
	}

	state, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !state.IsFailed("video000001") {
		t.Error("video with failed write must be a permanent failure")
	}
	if !state.IsCompleted("video000002") || !state.IsCompleted("video000003") {
		t.Error("later videos must still complete")
	}

	// A failed write does not burn extra fetch attempts.
	if got := source.callCount("video000001"); got != 1 {
		t.Errorf("video000001 fetched %d times, want 1", got)
	}

	records, err := storage.ReadAttemptLog(env.logPth)
	if err != nil {
		t.Fatal(err)
	}
	sawPermanent := false
	for _, rec := range records {
		if rec.VideoID == "video000001" && rec.Outcome == storage.OutcomePermanent {
			sawPermanent = true
		}
	}
	if !sawPermanent {
		t.Error("failed write is missing its permanent attempt record")
	}
}

func TestRun_WaitsBetweenBatches(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner(t, &fakeLister{videos: testVideos(4)}, newScriptedSource(nil), nil)

	opts := fastOpts()
	opts.BatchDelay = 60 * time.Millisecond

	started := time.Now()
	sum, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Batches != 2 {
		t.Fatalf("Batches = %d, want 2", sum.Batches)
	}
	// Two batches means exactly one inter-batch pause.
	if elapsed := time.Since(started); elapsed < opts.BatchDelay {
		t.Errorf("run took %v, want at least the %v batch pause", elapsed, opts.BatchDelay)
	}
}

func TestRun_CorruptStateAborts(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	source := newScriptedSource(nil)
	r := env.runner(t, &fakeLister{videos: testVideos(2)}, source, nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if !errors.Is(err, storage.ErrStateCorrupt) {
		t.Fatalf("error = %v, want ErrStateCorrupt", err)
	}
	if sum.Status != StatusAborted {
		t.Errorf("Status = %s, want aborted", sum.Status)
	}
	// The corrupt file is left untouched for inspection.
	data, _ := os.ReadFile(env.store.Path())
	if string(data) != "{not json" {
		t.Error("corrupt state file was modified")
	}
	if got := source.callCount("video000001"); got != 0 {
		t.Error("no fetches should happen with corrupt state")
	}
}

func TestRun_Canceled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	source := newScriptedSource(nil)
	// Cancel while processing the second video.
	blocking := &cancelingSource{inner: source, cancel: cancel, after: "video000002"}
	r := env.runner(t, &fakeLister{videos: testVideos(4)}, blocking, nil)

	sum, err := r.Run(ctx, fastOpts())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if sum.Status != StatusCanceled {
		t.Errorf("Status = %s, want canceled", sum.Status)
	}

	// Progress made before cancellation is checkpointed.
	state, loadErr := env.store.Load(context.Background())
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if !state.IsCompleted("video000001") {
		t.Error("first video should be checkpointed despite cancellation")
	}
}

// cancelingSource cancels the run when a given video is requested.
type cancelingSource struct {
	inner  youtube.TranscriptSource
	cancel context.CancelFunc
	after  string
}

func (c *cancelingSource) Fetch(ctx context.Context, videoID string) (*youtube.Transcript, error) {
	if videoID == c.after {
		c.cancel()
		return nil, ctx.Err()
	}
	return c.inner.Fetch(ctx, videoID)
}

func TestRun_DryRun(t *testing.T) {
	env := newTestEnv(t)
	source := newScriptedSource(nil)
	r := env.runner(t, &fakeLister{videos: testVideos(3)}, source, nil)

	opts := fastOpts()
	opts.DryRun = true
	sum, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Status != StatusCompleted || sum.Total != 3 {
		t.Errorf("summary = %+v", sum)
	}
	for _, id := range []string{"video000001", "video000002", "video000003"} {
		if source.callCount(id) != 0 {
			t.Errorf("dry run fetched %s", id)
		}
	}
	if _, err := os.Stat(env.store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("dry run should not write progress state")
	}
}

func TestRun_ListerFailureAborts(t *testing.T) {
	env := newTestEnv(t)
	r := env.runner(t, &fakeLister{err: youtube.ErrChannelNotFound}, newScriptedSource(nil), nil)

	sum, err := r.Run(context.Background(), fastOpts())
	if !errors.Is(err, youtube.ErrChannelNotFound) {
		t.Fatalf("error = %v, want ErrChannelNotFound", err)
	}
	if sum.Status != StatusAborted {
		t.Errorf("Status = %s, want aborted", sum.Status)
	}
}

func TestRun_WritesReports(t *testing.T) {
	env := newTestEnv(t)
	outDir := filepath.Join(env.dir, "out")
	snk := sink.NewFileSink(outDir, nil)
	attempts, err := storage.NewAttemptLog(env.logPth)
	if err != nil {
		t.Fatal(err)
	}
	defer attempts.Close()

	r, err := NewRunner(Deps{
		Lister:   &fakeLister{videos: testVideos(2)},
		Source:   newScriptedSource(nil),
		Sink:     snk,
		Store:    env.store,
		Attempts: attempts,
		Reporter: report.NewWriter(outDir, nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background(), fastOpts()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := report.ReadCatalog(filepath.Join(outDir, report.CatalogFileName))
	if err != nil {
		t.Fatalf("catalog not written: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("catalog rows = %d, want 2", len(entries))
	}
	if _, err := os.Stat(filepath.Join(outDir, report.SummaryFileName)); err != nil {
		t.Errorf("summary not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, report.IndexFileName)); err != nil {
		t.Errorf("master index not written: %v", err)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", fastOpts(), false},
		{"missing channel", Options{BatchSize: 1, Retry: retry.DefaultConfig()}, true},
		{"zero batch size", Options{Channel: "@c", Retry: retry.DefaultConfig()}, true},
		{"bad retry config", Options{Channel: "@c", BatchSize: 1, Retry: retry.Config{MaxAttempts: 0}}, true},
		{"negative delay", Options{Channel: "@c", BatchSize: 1, Retry: retry.DefaultConfig(), ItemDelay: -time.Second}, true},
		{"negative batch delay", Options{Channel: "@c", BatchSize: 1, Retry: retry.DefaultConfig(), BatchDelay: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
