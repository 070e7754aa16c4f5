package sink

import (
	"regexp"
	"strings"
)

// maxTitleLength caps the sanitized title portion of a filename so the
// full name stays well under common filesystem limits.
const maxTitleLength = 120

var (
	// Keep letters, digits, underscores, whitespace, and hyphens; drop
	// everything else. Unicode classes so Hebrew titles survive.
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	// Runs of whitespace or hyphens collapse to a single underscore.
	separators = regexp.MustCompile(`[-\s]+`)
)

// SafeFilename builds a cross-platform file name of the form
// Title_VideoID.txt from a video title.
func SafeFilename(title, videoID string) string {
	name := unsafeChars.ReplaceAllString(title, "")
	name = separators.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "video"
	}
	// Truncate on a rune boundary; Hebrew titles use multi-byte runes.
	if runes := []rune(name); len(runes) > maxTitleLength {
		name = strings.Trim(string(runes[:maxTitleLength]), "_")
	}
	return name + "_" + videoID + ".txt"
}
