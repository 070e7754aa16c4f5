package ytscribe

import (
	"ytscribe/sink"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// Error types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytscribe.ErrBlocked) {
//		fmt.Println("YouTube is throttling; wait before retrying")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var te *ytscribe.TranscriptError
//	if errors.As(err, &te) {
//		fmt.Printf("Transcript failed for %s: %v\n", te.VideoID, te.Err)
//	}

// Type aliases for convenient error handling.
type (
	// ListerError wraps errors during video listing.
	ListerError = youtube.ListerError
	// TranscriptError wraps errors during transcript fetching.
	TranscriptError = youtube.TranscriptError
	// WriteError wraps errors writing to the output tree.
	WriteError = sink.WriteError
	// StorageError wraps errors during progress persistence.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrBlocked indicates YouTube is throttling or blocking the client
	// globally; the run halts rather than retrying.
	ErrBlocked = youtube.ErrBlocked
	// ErrTranscriptUnavailable indicates the video has no transcript in
	// any acceptable language.
	ErrTranscriptUnavailable = youtube.ErrTranscriptUnavailable
	// ErrSourceUnavailable indicates a transient failure reaching YouTube.
	ErrSourceUnavailable = youtube.ErrSourceUnavailable
	// ErrChannelNotFound indicates the channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrInvalidURL indicates the provided URL or ID is invalid.
	ErrInvalidURL = youtube.ErrInvalidURL

	// ErrStateCorrupt indicates the progress file could not be parsed or
	// validated. The file is never reset automatically.
	ErrStateCorrupt = storage.ErrStateCorrupt
	// ErrLockTimeout indicates another process holds the progress file
	// lock.
	ErrLockTimeout = storage.ErrLockTimeout
	// ErrNotFound indicates a storage entity was not found.
	ErrNotFound = storage.ErrNotFound
)
