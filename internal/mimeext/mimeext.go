package mimeext

import (
	"strings"
)

const (
	// MimeVideoMP4 is the MIME type for MP4 video.
	MimeVideoMP4 = "video/mp4"
	// MimeAudioMP4 is the MIME type for MP4 audio.
	MimeAudioMP4 = "audio/mp4"
)

// Base strips any parameters (e.g. codecs) from a MIME type and lowercases it.
func Base(mime string) string {
	mime = strings.TrimSpace(mime)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// IsMP4 reports whether the MIME type describes an MP4 container.
func IsMP4(mime string) bool {
	switch Base(mime) {
	case MimeVideoMP4, MimeAudioMP4:
		return true
	}
	return false
}

// OrDefault returns the base MIME type, falling back to video/mp4 when the
// input is empty or malformed.
func OrDefault(mime string) string {
	base := Base(mime)
	if base == "" || !strings.Contains(base, "/") {
		return MimeVideoMP4
	}
	return base
}
