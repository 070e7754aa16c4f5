// Package extract implements the resumable batch extraction loop. It lists
// a channel's videos, fetches transcripts with bounded retry, writes them
// through the sink, and checkpoints progress after every batch so an
// interrupted run picks up where it left off.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ytscribe/classify"
	"ytscribe/internal/logger"
	"ytscribe/internal/retry"
	"ytscribe/report"
	"ytscribe/sink"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// Runner drives the extraction loop over its collaborators.
type Runner struct {
	lister   youtube.VideoLister
	source   youtube.TranscriptSource
	sink     sink.Sink
	store    storage.ProgressStore
	attempts *storage.AttemptLog
	reporter *report.Writer
	log      *logger.Logger
}

// Deps are the collaborators the runner needs. Lister, Source, Sink, and
// Store are required; Attempts and Reporter are optional.
type Deps struct {
	Lister   youtube.VideoLister
	Source   youtube.TranscriptSource
	Sink     sink.Sink
	Store    storage.ProgressStore
	Attempts *storage.AttemptLog
	Reporter *report.Writer
	Log      *logger.Logger
}

// NewRunner creates an extraction runner.
func NewRunner(deps Deps) (*Runner, error) {
	switch {
	case deps.Lister == nil:
		return nil, errors.New("extract: video lister is required")
	case deps.Source == nil:
		return nil, errors.New("extract: transcript source is required")
	case deps.Sink == nil:
		return nil, errors.New("extract: sink is required")
	case deps.Store == nil:
		return nil, errors.New("extract: progress store is required")
	}
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	return &Runner{
		lister:   deps.Lister,
		source:   deps.Source,
		sink:     deps.Sink,
		store:    deps.Store,
		attempts: deps.Attempts,
		reporter: deps.Reporter,
		log:      log.Component("extract"),
	}, nil
}

// Options configures a single run.
type Options struct {
	// Channel is the channel URL, handle, or ID to extract from.
	Channel string
	// BatchSize is the number of videos per checkpoint batch.
	BatchSize int
	// Retry is the per-video attempt budget and backoff schedule.
	Retry retry.Config
	// ItemDelay is the pause between videos within a batch.
	ItemDelay time.Duration
	// BatchDelay is the pause between batches, applied even when every
	// item in the previous batch succeeded.
	BatchDelay time.Duration
	// MaxVideos limits how many videos of the channel are considered.
	// 0 means all.
	MaxVideos int
	// NoResume discards prior progress and processes every listed video
	// again. A corrupt progress file still aborts the run.
	NoResume bool
	// DryRun lists and partitions but fetches nothing.
	DryRun bool
}

// Validate checks run options.
func (o *Options) Validate() error {
	if o.Channel == "" {
		return errors.New("extract: channel is required")
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("extract: batch size must be >= 1, got %d", o.BatchSize)
	}
	if err := o.Retry.Validate(); err != nil {
		return err
	}
	if o.ItemDelay < 0 {
		return fmt.Errorf("extract: item delay must be non-negative, got %v", o.ItemDelay)
	}
	if o.BatchDelay < 0 {
		return fmt.Errorf("extract: batch delay must be non-negative, got %v", o.BatchDelay)
	}
	return nil
}

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means every pending video was processed.
	StatusCompleted Status = "completed"
	// StatusHaltedThrottle means the source blocked the client and the run
	// stopped early. Already-checkpointed progress is kept.
	StatusHaltedThrottle Status = "halted_throttle"
	// StatusCanceled means the context was canceled mid-run.
	StatusCanceled Status = "canceled"
	// StatusAborted means the run hit an unrecoverable startup or
	// checkpoint error, such as corrupt progress state.
	StatusAborted Status = "aborted"
)

// Summary describes what one run did.
type Summary struct {
	RunID     string    `json:"run_id"`
	Status    Status    `json:"status"`
	Channel   string    `json:"channel"`
	Total     int       `json:"total"`
	Skipped   int       `json:"skipped"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Batches   int       `json:"batches"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	// BlockedAt is the video that triggered the halt, if any.
	BlockedAt string `json:"blocked_at,omitempty"`
	// Err is the error that aborted or halted the run, if any.
	Err error `json:"-"`
}

// Run executes the extraction loop. The returned summary is non-nil even
// when err is non-nil.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return &Summary{Status: StatusAborted, Err: err}, err
	}

	sum := &Summary{
		RunID:     uuid.NewString(),
		Channel:   opts.Channel,
		StartedAt: time.Now(),
	}
	log := r.log.WithField("run_id", sum.RunID)

	state, err := r.store.Load(ctx)
	if err != nil {
		// Corrupt state is never reset automatically; the operator has
		// to inspect or restore the file.
		sum.Status = StatusAborted
		sum.Err = err
		sum.EndedAt = time.Now()
		return sum, err
	}
	if opts.NoResume {
		state = storage.NewProgressState()
	}

	videos, err := r.lister.ListVideos(ctx, opts.Channel, &youtube.ListOptions{MaxResults: opts.MaxVideos})
	if err != nil {
		sum.Status = StatusAborted
		sum.Err = err
		sum.EndedAt = time.Now()
		return sum, err
	}
	sum.Total = len(videos)

	pending := make([]youtube.VideoInfo, 0, len(videos))
	for _, v := range videos {
		if state.IsDone(v.ID) {
			sum.Skipped++
			continue
		}
		pending = append(pending, v)
	}

	log.WithFields(map[string]interface{}{
		"total":   sum.Total,
		"skipped": sum.Skipped,
		"pending": len(pending),
	}).Info("run starting")

	if opts.DryRun {
		sum.Status = StatusCompleted
		sum.EndedAt = time.Now()
		return sum, nil
	}

	var catalog []report.CatalogEntry
	var failures []report.FailedVideo

	finish := func(status Status, cause error) (*Summary, error) {
		sum.Status = status
		sum.Err = cause
		sum.EndedAt = time.Now()
		if saveErr := r.store.Save(ctx, state); saveErr != nil {
			log.WithError(saveErr).Error("final checkpoint failed")
			if sum.Err == nil {
				sum.Status = StatusAborted
				sum.Err = saveErr
			}
		}
		r.writeReports(catalog, failures, log)
		log.WithFields(map[string]interface{}{
			"status":    string(sum.Status),
			"succeeded": sum.Succeeded,
			"failed":    sum.Failed,
		}).Info("run finished")
		return sum, sum.Err
	}

	for start := 0; start < len(pending); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batchIndex := start/opts.BatchSize + 1
		batch := pending[start:end]

		log.WithFields(map[string]interface{}{
			"batch": batchIndex,
			"size":  len(batch),
		}).Info("batch starting")

		for i, video := range batch {
			if err := ctx.Err(); err != nil {
				return finish(StatusCanceled, err)
			}

			entry, itemErr := r.processOne(ctx, sum.RunID, video, opts.Retry)
			switch {
			case itemErr == nil:
				state.MarkCompleted(video.ID)
				sum.Succeeded++
				catalog = append(catalog, entry)

			case errors.Is(itemErr, youtube.ErrBlocked):
				sum.BlockedAt = video.ID
				log.WithField("video_id", video.ID).Warn("source is blocking requests, halting run")
				return finish(StatusHaltedThrottle, itemErr)

			case errors.Is(itemErr, context.Canceled), errors.Is(itemErr, context.DeadlineExceeded):
				return finish(StatusCanceled, itemErr)

			default:
				// Permanent for this video: no transcript, retries
				// exhausted, or the sink rejected the write.
				state.MarkFailed(video.ID)
				sum.Failed++
				catalog = append(catalog, entry)
				failures = append(failures, report.FailedVideo{
					VideoID: video.ID,
					Title:   video.Title,
					Error:   itemErr.Error(),
				})
				log.WithField("video_id", video.ID).WithError(itemErr).Warn("video failed permanently")
			}

			if opts.ItemDelay > 0 && i < len(batch)-1 {
				select {
				case <-time.After(opts.ItemDelay):
				case <-ctx.Done():
					return finish(StatusCanceled, ctx.Err())
				}
			}
		}

		state.LastBatchIndex = batchIndex
		sum.Batches = batchIndex
		if err := r.store.Save(ctx, state); err != nil {
			return finish(StatusAborted, err)
		}
		log.WithField("batch", batchIndex).Debug("checkpoint saved")

		if opts.BatchDelay > 0 && end < len(pending) {
			select {
			case <-time.After(opts.BatchDelay):
			case <-ctx.Done():
				return finish(StatusCanceled, ctx.Err())
			}
		}
	}

	return finish(StatusCompleted, nil)
}

// processOne fetches, classifies, and stores one video's transcript under
// the retry budget. Every attempt is appended to the attempt log.
func (r *Runner) processOne(ctx context.Context, runID string, video youtube.VideoInfo, cfg retry.Config) (report.CatalogEntry, error) {
	var transcript *youtube.Transcript

	// The success record is written only after the sink accepted the
	// transcript, so a failed write shows up as a permanent attempt.
	lastAttempt := 0
	observer := func(attempt int, attemptErr error) {
		lastAttempt = attempt
		if attemptErr != nil {
			r.recordAttempt(runID, video.ID, attempt, attemptErr)
		}
	}

	err := retry.Do(ctx, cfg, fetchClassifier, observer, func(ctx context.Context) error {
		t, fetchErr := r.source.Fetch(ctx, video.ID)
		if fetchErr != nil {
			return fetchErr
		}
		transcript = t
		return nil
	})

	class := classify.Classify(video.Title, video.Description)
	entry := report.CatalogEntry{
		VideoID:     video.ID,
		Title:       video.Title,
		URL:         video.VideoURL(),
		PublishedAt: video.Published,
		Tractate:    class.Tractate,
		Series:      class.Series,
		ProcessedAt: time.Now(),
	}

	if err != nil {
		entry.Status = "failed"
		return entry, err
	}

	rec := &sink.Record{Video: video, Transcript: transcript, Class: class}
	path, err := r.sink.Save(rec)
	if err != nil {
		r.recordAttempt(runID, video.ID, lastAttempt, err)
		entry.Status = "failed"
		return entry, err
	}
	r.recordAttempt(runID, video.ID, lastAttempt, nil)

	entry.Status = "success"
	entry.TranscriptFile = path
	entry.TranscriptType = "manual"
	if transcript.Generated {
		entry.TranscriptType = "auto-generated"
	}
	entry.Language = transcript.Language
	entry.WordCount = rec.WordCount()
	entry.DurationCovered = rec.DurationCovered()
	return entry, nil
}

// recordAttempt appends one immutable attempt record.
func (r *Runner) recordAttempt(runID, videoID string, attempt int, err error) {
	if r.attempts == nil {
		return
	}

	rec := storage.AttemptRecord{
		RunID:   runID,
		VideoID: videoID,
		Attempt: attempt,
		Outcome: storage.OutcomeSuccess,
		At:      time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
		switch {
		case errors.Is(err, youtube.ErrBlocked):
			rec.Outcome = storage.OutcomeBlocked
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// The item stays pending, so the attempt was transient.
			rec.Outcome = storage.OutcomeTransient
		case isWriteError(err):
			rec.Outcome = storage.OutcomePermanent
		case fetchClassifier(err):
			rec.Outcome = storage.OutcomeTransient
		default:
			rec.Outcome = storage.OutcomePermanent
		}
	}

	if appendErr := r.attempts.Append(rec); appendErr != nil {
		r.log.WithError(appendErr).Warn("attempt log append failed")
	}
}

// writeReports regenerates catalog, summary, and indexes when a reporter
// is configured. New entries are merged over any existing catalog rows.
func (r *Runner) writeReports(entries []report.CatalogEntry, failures []report.FailedVideo, log *logger.Logger) {
	if r.reporter == nil || len(entries) == 0 {
		return
	}

	merged := r.reporter.MergeCatalog(entries)
	if _, err := r.reporter.WriteCatalog(merged); err != nil {
		log.WithError(err).Warn("catalog write failed")
	}
	if _, err := r.reporter.WriteSummary(merged, failures); err != nil {
		log.WithError(err).Warn("summary write failed")
	}
	if err := r.reporter.WriteIndexes(); err != nil {
		log.WithError(err).Warn("index write failed")
	}
}

// fetchClassifier maps the transcript error taxonomy onto the retry
// decision. A missing transcript and a global block both make further
// attempts pointless; transient source trouble is worth retrying.
func fetchClassifier(err error) bool {
	switch {
	case errors.Is(err, youtube.ErrTranscriptUnavailable):
		return false
	case errors.Is(err, youtube.ErrBlocked):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func isWriteError(err error) bool {
	var we *sink.WriteError
	return errors.As(err, &we)
}
