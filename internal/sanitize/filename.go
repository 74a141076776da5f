package sanitize

import (
	"regexp"
	"strings"
)

const (
	// MaxTitleLength is the maximum allowed length for the filename base.
	MaxTitleLength = 60
	// DefaultName is the replacement name when the title sanitizes to nothing.
	DefaultName = "video"
)

var unsafeRuns = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Title reduces a video title to a safe attachment filename base: every run
// of characters outside [A-Za-z0-9-_] becomes a single underscore, repeated
// underscores collapse, leading/trailing underscores are trimmed, and the
// result is capped at MaxTitleLength. Sanitizing an already-sanitized title
// returns it unchanged.
func Title(title string) string {
	name := unsafeRuns.ReplaceAllString(title, "_")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_")
	if len(name) > MaxTitleLength {
		name = strings.TrimRight(name[:MaxTitleLength], "_")
	}
	if name == "" {
		return DefaultName
	}
	return name
}
