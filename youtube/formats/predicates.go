// Package formats parses the upstream format catalog and picks the
// preferred candidate under a deterministic policy.
package formats

import (
	"strings"

	"github.com/tonicoded/ytvideoshorts/internal/mimeext"
	"github.com/tonicoded/ytvideoshorts/types"
)

// matchesAudioRequirement filters a candidate against the requested tier:
// combined (audio+video) when requireAudio is set, strictly video-only
// otherwise.
func matchesAudioRequirement(f types.Format, requireAudio bool) bool {
	if requireAudio {
		return f.HasAudio && f.HasVideo
	}
	return f.HasVideo && !f.HasAudio
}

// isMP4Container reports whether the candidate's container is MP4.
func isMP4Container(f types.Format) bool {
	return mimeext.IsMP4(f.MimeType)
}

// HasDirectURL returns true when the format already contains a resolvable URL.
// Formats without direct URLs need signature deciphering.
func HasDirectURL(f types.Format) bool {
	return strings.TrimSpace(f.URL) != ""
}

// Resolvable reports whether a format can produce a playable URL at all,
// either directly or after deciphering.
func Resolvable(f types.Format) bool {
	return HasDirectURL(f) || strings.TrimSpace(f.SignatureCipher) != ""
}
