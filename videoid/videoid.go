// Package videoid extracts a canonical video ID from user-supplied links.
// Extraction is purely syntactic; no network access happens here.
package videoid

import (
	"net/url"
	"strings"

	"github.com/tonicoded/ytvideoshorts/errs"
)

const (
	shortLinkHost = "youtu.be"
	mainHost      = "youtube.com"
	mobileHost    = "m.youtube.com"

	shortsPathPrefix = "shorts"
)

// FromURL parses a raw link and returns the video ID it references.
// Recognized forms are youtu.be/<id>, youtube.com/watch?v=<id> (any
// subdomain, including the mobile site), and youtube.com/shorts/<id>.
// Everything else yields errs.ErrNotVideoLink.
func FromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errs.ErrNotVideoLink
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == shortLinkHost:
		if seg := pathSegments(u.Path); len(seg) > 0 {
			return seg[0], nil
		}
	case host == mainHost || host == mobileHost || strings.HasSuffix(host, "."+mainHost):
		if v := u.Query().Get("v"); v != "" {
			return v, nil
		}
		if seg := pathSegments(u.Path); len(seg) >= 2 && seg[0] == shortsPathPrefix {
			return seg[1], nil
		}
	}
	return "", errs.ErrNotVideoLink
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
