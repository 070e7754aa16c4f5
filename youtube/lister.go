// Package youtube provides video listing and transcript retrieval for
// YouTube channels.
package youtube

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for listing and transcript operations.
var (
	// ErrBlocked indicates YouTube is throttling or blocking the client
	// globally. Continuing would make things worse; the caller should halt.
	ErrBlocked = errors.New("youtube: blocked by rate limiting or bot detection")

	// ErrTranscriptUnavailable indicates the video has no transcript in any
	// acceptable language. This is permanent for the video.
	ErrTranscriptUnavailable = errors.New("youtube: transcript not available")

	// ErrSourceUnavailable indicates a transient failure reaching YouTube
	// (network error, timeout, 5xx).
	ErrSourceUnavailable = errors.New("youtube: source unavailable")

	ErrChannelNotFound = errors.New("youtube: channel not found")
	ErrInvalidURL      = errors.New("youtube: invalid URL")
	ErrNetworkTimeout  = errors.New("youtube: network timeout")
)

// VideoLister fetches the video list for a channel.
type VideoLister interface {
	// ListVideos fetches videos from the specified channel. The channel can
	// be a channel URL, handle (@username), or bare channel ID. Results are
	// returned newest first.
	ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error)
}

// ListOptions configures video listing behavior.
type ListOptions struct {
	// MaxResults limits the number of videos returned. 0 means no limit.
	MaxResults int

	// PublishedAfter filters videos to only those published after this time.
	// Zero time means no filter.
	PublishedAfter time.Time
}

// VideoInfo contains metadata about a YouTube video.
type VideoInfo struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// ChannelID is the YouTube channel ID.
	ChannelID string `json:"channel_id"`

	// ChannelName is the display name of the channel.
	ChannelName string `json:"channel_name"`

	// Published is when the video was published.
	Published time.Time `json:"published"`

	// Description is the video description. May be truncated by some sources.
	Description string `json:"description,omitempty"`

	// Duration is the video length. May be zero when the source omits it.
	Duration time.Duration `json:"duration,omitempty"`
}

// VideoURL returns the full YouTube URL for this video.
func (v VideoInfo) VideoURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ListerError wraps listing errors with context about what failed.
type ListerError struct {
	// Source indicates which lister produced the error ("api").
	Source string
	// Channel is the channel URL or ID that was being listed.
	Channel string
	// Err is the underlying error.
	Err error
}

func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.Channel + ": " + e.Err.Error()
}

func (e *ListerError) Unwrap() error { return e.Err }

var (
	videoIDRegex   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	channelIDRegex = regexp.MustCompile(`UC[A-Za-z0-9_-]{22}`)
)

// ExtractVideoID extracts an 11-character video ID from a URL or returns
// the input unchanged if it already is one. Supported URL forms are
// watch?v=, youtu.be/, embed/, shorts/, and live/.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDRegex.MatchString(input) {
		return input, nil
	}

	for _, marker := range []string{"watch?v=", "youtu.be/", "embed/", "shorts/", "live/"} {
		idx := strings.Index(input, marker)
		if idx < 0 {
			continue
		}
		rest := input[idx+len(marker):]
		if len(rest) >= 11 && videoIDRegex.MatchString(rest[:11]) {
			return rest[:11], nil
		}
	}

	return "", ErrInvalidURL
}

// filterVideos applies MaxResults and PublishedAfter to a video list.
func filterVideos(videos []VideoInfo, opts *ListOptions) []VideoInfo {
	if opts == nil {
		return videos
	}

	out := videos
	if !opts.PublishedAfter.IsZero() {
		out = out[:0]
		for _, v := range videos {
			if v.Published.After(opts.PublishedAfter) {
				out = append(out, v)
			}
		}
	}
	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}
