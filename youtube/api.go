package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytscribe/internal/logger"
	"ytscribe/internal/retry"
)

// APILister implements VideoLister using YouTube Data API v3. It walks the
// channel's uploads playlist, which returns the full video history.
type APILister struct {
	service     *youtube.Service
	log         *logger.Logger
	RetryConfig retry.Config

	// Quota tracking. The Data API has a daily budget; we track an
	// estimate so callers can report usage.
	mu             sync.Mutex
	estimatedQuota int
}

// defaultDailyQuota is the standard YouTube Data API daily allotment.
const defaultDailyQuota = 10000

// NewAPILister creates a YouTube Data API v3 video lister.
func NewAPILister(ctx context.Context, apiKey string, log *logger.Logger) (*APILister, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if log == nil {
		log = logger.Default()
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &APILister{
		service:        service,
		log:            log.Component("youtube.api"),
		RetryConfig:    retry.DefaultConfig(),
		estimatedQuota: defaultDailyQuota,
	}, nil
}

// ListVideos fetches all videos from the channel's uploads playlist,
// newest first.
func (a *APILister) ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error) {
	channelID, err := a.resolveChannelID(ctx, channel)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}

	uploadsPlaylistID, channelName, err := a.getUploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}

	videos, err := a.listPlaylistVideos(ctx, uploadsPlaylistID, channelID, channelName, opts)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}

	a.log.WithField("count", len(videos)).WithField("channel", channelName).
		Info("video list fetched")
	return videos, nil
}

// resolveChannelID converts a channel URL, handle, or ID to a channel ID.
func (a *APILister) resolveChannelID(ctx context.Context, input string) (string, error) {
	if channelIDRegex.MatchString(input) {
		return channelIDRegex.FindString(input), nil
	}

	if strings.HasPrefix(input, "@") {
		return a.searchChannel(ctx, strings.TrimPrefix(input, "@"))
	}

	if strings.Contains(input, "youtube.com/channel/") {
		parts := strings.Split(input, "youtube.com/channel/")
		id := strings.Split(parts[1], "/")[0]
		id = strings.Split(id, "?")[0]
		if channelIDRegex.MatchString(id) {
			return id, nil
		}
	}
	if idx := strings.Index(input, "youtube.com/@"); idx >= 0 {
		handle := strings.Split(input[idx+len("youtube.com/@"):], "/")[0]
		return a.searchChannel(ctx, handle)
	}
	if strings.Contains(input, "youtube.com/c/") {
		parts := strings.Split(input, "youtube.com/c/")
		custom := strings.Split(parts[1], "/")[0]
		return a.searchChannel(ctx, custom)
	}

	return "", fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidURL, input)
}

// searchChannel resolves a handle or custom URL fragment to a channel ID.
func (a *APILister) searchChannel(ctx context.Context, query string) (string, error) {
	var channelID string
	err := retry.Do(ctx, a.RetryConfig, apiErrorClassifier, nil, func(ctx context.Context) error {
		call := a.service.Search.List([]string{"id"}).
			Q(query).
			Type("channel").
			MaxResults(1).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNetworkTimeout
			}
			return err
		}
		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}

		channelID = resp.Items[0].Id.ChannelId
		a.trackQuotaUsage(100) // search.list costs 100 units
		return nil
	})
	if err != nil {
		return "", err
	}
	return channelID, nil
}

// getUploadsPlaylistID returns the uploads playlist ID and display name
// for a channel.
func (a *APILister) getUploadsPlaylistID(ctx context.Context, channelID string) (string, string, error) {
	var playlistID, channelName string

	err := retry.Do(ctx, a.RetryConfig, apiErrorClassifier, nil, func(ctx context.Context) error {
		call := a.service.Channels.List([]string{"contentDetails", "snippet"}).
			Id(channelID).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNetworkTimeout
			}
			return err
		}
		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}

		channel := resp.Items[0]
		playlistID = channel.ContentDetails.RelatedPlaylists.Uploads
		if channel.Snippet != nil {
			channelName = channel.Snippet.Title
		}

		a.trackQuotaUsage(1)
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return playlistID, channelName, nil
}

// listPlaylistVideos fetches all videos from a playlist using pagination.
func (a *APILister) listPlaylistVideos(ctx context.Context, playlistID, channelID, channelName string, opts *ListOptions) ([]VideoInfo, error) {
	var allVideos []VideoInfo

	pageToken := ""
	for {
		if opts != nil && opts.MaxResults > 0 && len(allVideos) >= opts.MaxResults {
			break
		}

		err := retry.Do(ctx, a.RetryConfig, apiErrorClassifier, nil, func(ctx context.Context) error {
			call := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				if ctx.Err() != nil {
					return ErrNetworkTimeout
				}
				return err
			}

			for _, item := range resp.Items {
				video := VideoInfo{
					ID:          item.ContentDetails.VideoId,
					ChannelID:   channelID,
					ChannelName: channelName,
				}
				if item.Snippet != nil {
					video.Title = item.Snippet.Title
					video.Description = item.Snippet.Description
					if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
						video.Published = t
					}
				}
				allVideos = append(allVideos, video)
			}

			pageToken = resp.NextPageToken
			a.trackQuotaUsage(1)
			return nil
		})
		if err != nil {
			return nil, err
		}

		if pageToken == "" {
			break
		}
	}

	return filterVideos(allVideos, opts), nil
}

// trackQuotaUsage updates the estimated remaining quota.
func (a *APILister) trackQuotaUsage(units int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.estimatedQuota -= units
	if a.estimatedQuota < 0 {
		a.estimatedQuota = 0
	}
}

// EstimatedQuota returns the estimated remaining daily quota units.
func (a *APILister) EstimatedQuota() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.estimatedQuota
}

// apiErrorClassifier determines if a Data API error is retryable.
// Quota exhaustion is permanent for the day, so retrying is pointless.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrInvalidURL):
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "quotaExceeded") {
		return false
	}
	if strings.Contains(msg, "rateLimitExceeded") {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return true
}
