package storage

import (
	"sort"
	"time"
)

const stateVersion = "1.0"

// Outcome classifies the result of a single fetch attempt.
type Outcome string

const (
	// OutcomeSuccess means the transcript was fetched and written.
	OutcomeSuccess Outcome = "success"
	// OutcomeTransient means the attempt failed but is retryable.
	OutcomeTransient Outcome = "transient_failure"
	// OutcomePermanent means the item was given up on: retries exhausted,
	// no transcript exists, or the sink write failed.
	OutcomePermanent Outcome = "permanent_failure"
	// OutcomeBlocked means the source throttled the whole run. The item
	// stays pending for the next run.
	OutcomeBlocked Outcome = "blocked"
)

// AttemptRecord documents one fetch attempt for one video. Records are
// append-only: created per attempt and never mutated afterwards.
type AttemptRecord struct {
	RunID   string    `json:"run_id"`
	VideoID string    `json:"video_id"`
	Attempt int       `json:"attempt"`
	Outcome Outcome   `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// ProgressState is the persisted record of which videos are done. It is the
// sole authority on completion: the extraction loop never consults the output
// directory to decide whether a video needs processing.
//
// The completed and permanent_failures sets are kept as sorted slices so the
// serialized file stays stable and human-diffable across checkpoints.
type ProgressState struct {
	Version           string    `json:"version"`
	Completed         []string  `json:"completed"`
	PermanentFailures []string  `json:"permanent_failures"`
	LastBatchIndex    int       `json:"last_batch_index"`
	TotalProcessed    int       `json:"total_processed"`
	StartedAt         time.Time `json:"started_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewProgressState returns an empty state for a fresh extraction run.
func NewProgressState() *ProgressState {
	return &ProgressState{
		Version:           stateVersion,
		Completed:         []string{},
		PermanentFailures: []string{},
		LastBatchIndex:    0,
		StartedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

// IsCompleted reports whether the video was successfully processed.
func (s *ProgressState) IsCompleted(videoID string) bool {
	return containsSorted(s.Completed, videoID)
}

// IsFailed reports whether the video was recorded as a permanent failure.
func (s *ProgressState) IsFailed(videoID string) bool {
	return containsSorted(s.PermanentFailures, videoID)
}

// IsDone reports whether the video needs no further fetch attempts.
func (s *ProgressState) IsDone(videoID string) bool {
	return s.IsCompleted(videoID) || s.IsFailed(videoID)
}

// MarkCompleted records a successful extraction. Marking a video completed
// removes any prior permanent-failure mark, keeping the two sets disjoint.
func (s *ProgressState) MarkCompleted(videoID string) {
	if s.IsCompleted(videoID) {
		return
	}
	s.PermanentFailures = removeSorted(s.PermanentFailures, videoID)
	s.Completed = insertSorted(s.Completed, videoID)
	s.TotalProcessed++
}

// MarkFailed records a permanent failure. Videos already completed are not
// re-marked.
func (s *ProgressState) MarkFailed(videoID string) {
	if s.IsDone(videoID) {
		return
	}
	s.PermanentFailures = insertSorted(s.PermanentFailures, videoID)
	s.TotalProcessed++
}

// ClearFailures empties the permanent-failure set so a later run re-attempts
// those videos. It returns the IDs that were cleared.
func (s *ProgressState) ClearFailures() []string {
	cleared := s.PermanentFailures
	s.PermanentFailures = []string{}
	if n := s.TotalProcessed - len(cleared); n >= 0 {
		s.TotalProcessed = n
	}
	return cleared
}

// Validate checks internal consistency of a loaded state.
func (s *ProgressState) Validate() error {
	if s.Version == "" {
		return ErrStateCorrupt
	}
	if !sort.StringsAreSorted(s.Completed) || !sort.StringsAreSorted(s.PermanentFailures) {
		return ErrStateCorrupt
	}
	for _, id := range s.PermanentFailures {
		if containsSorted(s.Completed, id) {
			return ErrStateCorrupt
		}
	}
	if s.LastBatchIndex < 0 {
		return ErrStateCorrupt
	}
	return nil
}

func containsSorted(set []string, v string) bool {
	i := sort.SearchStrings(set, v)
	return i < len(set) && set[i] == v
}

func insertSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return set
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = v
	return set
}

func removeSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i >= len(set) || set[i] != v {
		return set
	}
	return append(set[:i], set[i+1:]...)
}
