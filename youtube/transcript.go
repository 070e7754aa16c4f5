package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ytscribe/internal/httpx"
)

// DefaultLanguages is the transcript language preference order. English
// variants first, then Hebrew under both its current and legacy ISO codes.
var DefaultLanguages = []string{"en", "en-US", "en-GB", "he", "iw"}

// TranscriptSource fetches the transcript for a single video.
type TranscriptSource interface {
	// Fetch retrieves the transcript for a video, trying each language in
	// the source's preference order. It returns ErrTranscriptUnavailable
	// when no acceptable track exists, ErrBlocked when YouTube is
	// throttling globally, and ErrSourceUnavailable for transient
	// failures.
	Fetch(ctx context.Context, videoID string) (*Transcript, error)
}

// TranscriptEntry is a single timed caption line.
type TranscriptEntry struct {
	// Start is the offset from the beginning of the video, in seconds.
	Start float64 `json:"start"`
	// Duration is how long the line stays on screen, in seconds.
	Duration float64 `json:"duration"`
	// Text is the caption text.
	Text string `json:"text"`
}

// Transcript is a full caption track for one video.
type Transcript struct {
	VideoID   string            `json:"video_id"`
	Language  string            `json:"language"`
	Generated bool              `json:"generated"`
	Entries   []TranscriptEntry `json:"entries"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Text returns the transcript as a single string, one line per entry.
func (t *Transcript) Text() string {
	var sb strings.Builder
	for i, e := range t.Entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Text)
	}
	return sb.String()
}

// TranscriptError wraps transcript fetch errors with the video they
// concern.
type TranscriptError struct {
	VideoID string
	Err     error
}

func (e *TranscriptError) Error() string {
	return "youtube: transcript " + e.VideoID + ": " + e.Err.Error()
}

func (e *TranscriptError) Unwrap() error { return e.Err }

// TimedtextClient fetches transcripts from YouTube's timedtext endpoint.
type TimedtextClient struct {
	httpClient *httpx.Client
	baseURL    string
	languages  []string
}

// NewTimedtextClient creates a transcript source that prefers the given
// languages in order. A nil or empty list uses DefaultLanguages.
func NewTimedtextClient(client *httpx.Client, languages []string) *TimedtextClient {
	if client == nil {
		client = httpx.New(nil)
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &TimedtextClient{
		httpClient: client,
		baseURL:    "https://www.youtube.com/api/timedtext",
		languages:  languages,
	}
}

// Fetch retrieves the transcript for a video. For each preferred language
// it tries the manually created track first, then the auto-generated one.
// When no preferred language matches, it falls back to whatever track the
// video actually carries.
func (tc *TimedtextClient) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	if videoID == "" {
		return nil, &TranscriptError{VideoID: videoID, Err: errors.New("video ID is required")}
	}

	for _, lang := range tc.languages {
		for _, asr := range []bool{false, true} {
			tr, err := tc.tryTrack(ctx, videoID, lang, asr)
			if err != nil {
				if errors.Is(err, ErrTranscriptUnavailable) {
					continue // try next track
				}
				return nil, &TranscriptError{VideoID: videoID, Err: err}
			}
			return tr, nil
		}
	}

	tracks, err := tc.listTracks(ctx, videoID)
	if err != nil && !errors.Is(err, ErrTranscriptUnavailable) {
		return nil, &TranscriptError{VideoID: videoID, Err: err}
	}
	for _, track := range tracks {
		if preferredLanguage(tc.languages, track.LangCode) {
			continue // already tried above
		}
		tr, err := tc.tryTrack(ctx, videoID, track.LangCode, track.Kind == "asr")
		if err != nil {
			if errors.Is(err, ErrTranscriptUnavailable) {
				continue
			}
			return nil, &TranscriptError{VideoID: videoID, Err: err}
		}
		return tr, nil
	}

	return nil, &TranscriptError{VideoID: videoID, Err: ErrTranscriptUnavailable}
}

func (tc *TimedtextClient) tryTrack(ctx context.Context, videoID, lang string, asr bool) (*Transcript, error) {
	entries, err := tc.fetchTrack(ctx, videoID, lang, asr)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		VideoID:   videoID,
		Language:  lang,
		Generated: asr,
		Entries:   entries,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func preferredLanguage(languages []string, lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// fetchTrack fetches one caption track and maps HTTP failures onto the
// package sentinels.
func (tc *TimedtextClient) fetchTrack(ctx context.Context, videoID, lang string, asr bool) ([]TranscriptEntry, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")
	if asr {
		params.Set("kind", "asr")
	}

	resp, err := tc.httpClient.Get(ctx, tc.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, mapFetchError(err)
	}

	// The endpoint answers 200 with an empty body when the track does
	// not exist.
	if len(resp.Body) == 0 {
		return nil, ErrTranscriptUnavailable
	}

	entries, err := parseTimedtext(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse timedtext response: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrTranscriptUnavailable
	}
	return entries, nil
}

// trackList is the XML answer of the timedtext endpoint's type=list query.
type trackList struct {
	XMLName xml.Name    `xml:"transcript_list"`
	Tracks  []trackInfo `xml:"track"`
}

type trackInfo struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
	Kind     string `xml:"kind,attr"`
}

// listTracks enumerates the caption tracks a video carries.
func (tc *TimedtextClient) listTracks(ctx context.Context, videoID string) ([]trackInfo, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("type", "list")

	resp, err := tc.httpClient.Get(ctx, tc.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, mapFetchError(err)
	}
	if len(resp.Body) == 0 {
		return nil, ErrTranscriptUnavailable
	}

	var list trackList
	if err := xml.Unmarshal(resp.Body, &list); err != nil {
		return nil, fmt.Errorf("parse track list: %w", err)
	}
	return list.Tracks, nil
}

// mapFetchError converts transport-level errors into package sentinels.
func mapFetchError(err error) error {
	var rl *httpx.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	if httpx.IsNotFound(err) {
		return ErrTranscriptUnavailable
	}
	var he *httpx.HTTPError
	if errors.As(err, &he) {
		if he.StatusCode >= 500 {
			return fmt.Errorf("%w: http %d", ErrSourceUnavailable, he.StatusCode)
		}
		return he
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Connection refused, DNS failure, timeout.
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

// timedtextResponse is the json3 wire format of the timedtext endpoint.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs    int64              `json:"tStartMs"`
	DDurationMs int64              `json:"dDurationMs"`
	Segs        []timedtextSegment `json:"segs,omitempty"`
}

type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// parseTimedtext converts the json3 event stream into transcript entries.
// Events without text segments (window definitions) are skipped.
func parseTimedtext(data []byte) ([]TranscriptEntry, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal timedtext JSON: %w", err)
	}

	var entries []TranscriptEntry
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}

		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		line := strings.TrimSpace(text.String())
		if line == "" {
			continue
		}

		entries = append(entries, TranscriptEntry{
			Start:    float64(event.TStartMs) / 1000.0,
			Duration: float64(event.DDurationMs) / 1000.0,
			Text:     line,
		})
	}
	return entries, nil
}
