package formats

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tonicoded/ytvideoshorts/internal/mimeext"
	"github.com/tonicoded/ytvideoshorts/types"
	"github.com/tonicoded/ytvideoshorts/youtube/cipher"
	"github.com/tonicoded/ytvideoshorts/youtube/innertube"
)

var heightRe = regexp.MustCompile(`([0-9]{3,4})p`)

func parseHeight(label string) int {
	m := heightRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// Parse flattens the InnerTube player response into the candidate list.
// Progressive formats carry both tracks; adaptive formats are split by their
// MIME top-level type and the presence of an audio quality marker.
func Parse(data *innertube.PlayerResponse) []types.Format {
	var out []types.Format
	append1 := func(raw any, progressive bool) {
		f, ok := raw.(map[string]any)
		if !ok {
			return
		}

		var format types.Format
		if v, ok := f["itag"].(float64); ok {
			format.Itag = int(v)
		}
		if v, ok := f["bitrate"].(float64); ok {
			format.Bitrate = int(v)
		}
		format.MimeType, _ = f["mimeType"].(string)
		format.Quality, _ = f["qualityLabel"].(string)
		if v, ok := f["height"].(float64); ok {
			format.Height = int(v)
		} else {
			format.Height = parseHeight(format.Quality)
		}

		base := mimeext.Base(format.MimeType)
		_, hasAudioQuality := f["audioQuality"]
		switch {
		case progressive:
			format.HasVideo = true
			format.HasAudio = true
		case strings.HasPrefix(base, "audio/"):
			format.HasAudio = true
		default:
			format.HasVideo = true
			format.HasAudio = hasAudioQuality
		}

		if u, ok := f["url"].(string); ok {
			format.URL = u
		} else if sc, ok := f["signatureCipher"].(string); ok {
			format.SignatureCipher = sc
		}

		out = append(out, format)
	}

	for _, raw := range data.StreamingData.Formats {
		append1(raw, true)
	}
	for _, raw := range data.StreamingData.AdaptiveFormats {
		append1(raw, false)
	}
	return out
}

// Best chooses the single preferred candidate from the list. With
// requireAudio set only combined (audio+video) formats survive; otherwise
// only video-only formats do. An MP4-container subset is preferred when
// non-empty, and within the chosen subset the greatest height wins, with
// unknown heights ranked lowest and first-seen order breaking ties. Returns
// nil when no candidate survives the audio filter.
func Best(list []types.Format, requireAudio bool) *types.Format {
	var survivors []types.Format
	for _, f := range list {
		if matchesAudioRequirement(f, requireAudio) {
			survivors = append(survivors, f)
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	var mp4 []types.Format
	for _, f := range survivors {
		if isMP4Container(f) {
			mp4 = append(mp4, f)
		}
	}
	pool := survivors
	if len(mp4) > 0 {
		pool = mp4
	}

	best := pool[0]
	for _, f := range pool[1:] {
		if f.Height > best.Height {
			best = f
		}
	}
	return &best
}

// BestResolvable applies the Best policy to the subset of formats that can
// produce a playable URL (direct or decipherable).
func BestResolvable(list []types.Format, requireAudio bool) *types.Format {
	var usable []types.Format
	for _, f := range list {
		if Resolvable(f) {
			usable = append(usable, f)
		}
	}
	return Best(usable, requireAudio)
}

// ResolveURL builds the final downloadable URL for a format. A direct URL
// only needs n-parameter decoding; a signatureCipher needs the signature
// deciphered and reassembled. Both paths add ratebypass/alr query hygiene.
func ResolveURL(ctx context.Context, dc *cipher.Descrambler, f types.Format) (string, error) {
	if strings.TrimSpace(f.URL) != "" {
		u, err := url.Parse(f.URL)
		if err != nil {
			return "", fmt.Errorf("parse direct url: %w", err)
		}
		q := u.Query()
		if nval := q.Get("n"); nval != "" {
			if nout, err := dc.TransformN(ctx, nval); err == nil && nout != "" {
				q.Set("n", nout)
			}
		}
		applyQueryHygiene(q)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if strings.TrimSpace(f.SignatureCipher) == "" {
		return "", fmt.Errorf("format %d has no url or signatureCipher", f.Itag)
	}
	parsed, err := url.ParseQuery(f.SignatureCipher)
	if err != nil {
		return "", fmt.Errorf("parse signatureCipher: %w", err)
	}
	sig := parsed.Get("s")
	sp := parsed.Get("sp")
	if sp == "" {
		sp = "signature"
	}
	cipherURL := parsed.Get("url")
	if cipherURL == "" || sig == "" {
		return "", fmt.Errorf("signatureCipher missing signature or url")
	}

	decoded, err := dc.Decipher(ctx, sig)
	if err != nil {
		return "", fmt.Errorf("decipher signature: %w", err)
	}
	u, err := url.Parse(cipherURL)
	if err != nil {
		return "", fmt.Errorf("parse cipher url: %w", err)
	}
	q := u.Query()
	q.Set(sp, decoded)
	if nval := q.Get("n"); nval != "" {
		if nout, err := dc.TransformN(ctx, nval); err == nil && nout != "" {
			q.Set("n", nout)
		}
	}
	applyQueryHygiene(q)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// applyQueryHygiene sets ratebypass and alr so hosts serve full-rate,
// redirect-friendly responses.
func applyQueryHygiene(q url.Values) {
	if q.Get("ratebypass") == "" {
		q.Set("ratebypass", "yes")
	}
	if q.Get("alr") == "" {
		q.Set("alr", "yes")
	}
}
