package youtube

import (
	"errors"
	"testing"
	"time"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare ID", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch URL with params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts URL", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"live URL", "https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"whitespace trimmed", "  dQw4w9WgXcQ  ", "dQw4w9WgXcQ", false},
		{"too short", "abc123", "", true},
		{"channel URL", "https://www.youtube.com/@somechannel", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilterVideos(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := []VideoInfo{
		{ID: "aaaaaaaaaaa", Published: base.Add(72 * time.Hour)},
		{ID: "bbbbbbbbbbb", Published: base.Add(48 * time.Hour)},
		{ID: "ccccccccccc", Published: base.Add(24 * time.Hour)},
	}

	t.Run("nil opts returns all", func(t *testing.T) {
		if got := filterVideos(videos, nil); len(got) != 3 {
			t.Errorf("len = %d, want 3", len(got))
		}
	})

	t.Run("max results truncates", func(t *testing.T) {
		got := filterVideos(videos, &ListOptions{MaxResults: 2})
		if len(got) != 2 || got[0].ID != "aaaaaaaaaaa" {
			t.Errorf("got %v, want first two", got)
		}
	})

	t.Run("published after filters", func(t *testing.T) {
		got := filterVideos(videos, &ListOptions{PublishedAfter: base.Add(36 * time.Hour)})
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		for _, v := range got {
			if !v.Published.After(base.Add(36 * time.Hour)) {
				t.Errorf("video %s published too early", v.ID)
			}
		}
	})
}

func TestAPIErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"channel not found", ErrChannelNotFound, false},
		{"invalid URL", ErrInvalidURL, false},
		{"quota exceeded", errors.New("googleapi: Error 403: quotaExceeded"), false},
		{"rate limit exceeded", errors.New("googleapi: Error 403: rateLimitExceeded"), true},
		{"unknown error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorClassifier(tt.err); got != tt.want {
				t.Errorf("apiErrorClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
