package types

// Format describes one candidate stream for a video as reported by the
// upstream catalog. A format may carry a direct URL, a signature cipher
// that must be deciphered first, or neither.
type Format struct {
	Itag            int
	URL             string
	MimeType        string
	Quality         string
	Height          int
	Bitrate         int
	HasAudio        bool
	HasVideo        bool
	SignatureCipher string
}

// VideoInfo describes video metadata together with its available formats.
type VideoInfo struct {
	ID      string
	Title   string
	Author  string
	Formats []Format
}
