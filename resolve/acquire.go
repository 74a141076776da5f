package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tonicoded/ytvideoshorts/errs"
	"github.com/tonicoded/ytvideoshorts/internal/mimeext"
	"github.com/tonicoded/ytvideoshorts/youtube/formats"
)

// Acquire obtains an open byte stream for the selected candidate. Strategies
// run in order, stopping at the first success:
//
//  1. direct fetch of the candidate's URL;
//  2. descrambled retrieval via player.js, honoring the video-only flag when
//     the candidate itself cannot be resolved;
//  3. a last-resort re-resolution at the download layer over a small persona
//     × stream-type grid, independent of the original selection.
//
// Failures inside a strategy are logged and swallowed; only exhaustion of
// all three yields ErrAcquisitionFailed.
func (r *Resolver) Acquire(ctx context.Context, videoID string, sel *Selection) (*Target, error) {
	if sel.Candidate.URL != "" {
		body, err := r.fetchStream(ctx, sel.Candidate.URL)
		if err == nil {
			return &Target{
				Body:      body,
				Title:     sel.Info.Title,
				MimeType:  mimeext.OrDefault(sel.Candidate.MimeType),
				VideoOnly: sel.VideoOnly,
			}, nil
		}
		r.log.Warn("direct fetch failed", map[string]any{"itag": sel.Candidate.Itag, "error": err.Error()})
	}

	if target, err := r.acquireDescrambled(ctx, videoID, sel); err == nil {
		return target, nil
	} else {
		r.log.Warn("descrambled retrieval failed", map[string]any{"error": err.Error()})
	}

	if target, err := r.acquireRaw(ctx, videoID, sel.Info.Title); err == nil {
		return target, nil
	} else {
		r.log.Warn("raw download fallback failed", map[string]any{"error": err.Error()})
	}

	return nil, errs.ErrAcquisitionFailed
}

// acquireDescrambled resolves a fetchable URL through the descrambler. The
// originally chosen candidate is used when it can be resolved at all;
// otherwise the best resolvable format of the same tier takes its place.
func (r *Resolver) acquireDescrambled(ctx context.Context, videoID string, sel *Selection) (*Target, error) {
	format := sel.Candidate
	if !formats.Resolvable(format) {
		best := formats.BestResolvable(sel.Info.Formats, !sel.VideoOnly)
		if best == nil {
			return nil, fmt.Errorf("no resolvable format in catalog")
		}
		format = *best
	}

	streamURL, err := r.urls.ResolveURL(ctx, videoID, format)
	if err != nil {
		return nil, err
	}
	body, err := r.fetchStream(ctx, streamURL)
	if err != nil {
		return nil, err
	}
	return &Target{
		Body:      body,
		Title:     sel.Info.Title,
		MimeType:  mimeext.OrDefault(format.MimeType),
		VideoOnly: sel.VideoOnly,
	}, nil
}

// acquireRaw is the download-layer fallback: it re-resolves the catalog from
// scratch for each persona in the fallback grid, trying combined then
// video-only, and streams the first format that resolves. It deliberately
// ignores the earlier selection.
func (r *Resolver) acquireRaw(ctx context.Context, videoID string, title string) (*Target, error) {
	for _, persona := range rawFallbackPersonas {
		pr, err := r.catalog.Player(ctx, videoID, persona)
		if err != nil {
			r.log.Warn("raw fallback catalog fetch failed", map[string]any{
				"persona": string(persona),
				"error":   err.Error(),
			})
			continue
		}
		list := formats.Parse(pr)

		for _, combined := range []bool{true, false} {
			format := formats.BestResolvable(list, combined)
			if format == nil {
				continue
			}
			streamURL, err := r.urls.ResolveURL(ctx, videoID, *format)
			if err != nil {
				r.log.Warn("raw fallback resolve failed", map[string]any{
					"persona": string(persona),
					"itag":    format.Itag,
					"error":   err.Error(),
				})
				continue
			}
			body, err := r.fetchStream(ctx, streamURL)
			if err != nil {
				r.log.Warn("raw fallback fetch failed", map[string]any{
					"persona": string(persona),
					"itag":    format.Itag,
					"error":   err.Error(),
				})
				continue
			}
			return &Target{
				Body:      body,
				Title:     title,
				MimeType:  mimeext.OrDefault(format.MimeType),
				VideoOnly: !combined,
			}, nil
		}
	}
	return nil, fmt.Errorf("raw download grid exhausted")
}

// fetchStream issues the media GET and hands back the response body. Any
// non-2xx status or missing body counts as failure.
func (r *Resolver) fetchStream(ctx context.Context, streamURL string) (io.ReadCloser, error) {
	header := http.Header{}
	header.Set("Accept", "*/*")
	header.Set("Accept-Encoding", "identity")

	resp, err := r.http.Get(ctx, streamURL, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream status %d", resp.StatusCode)
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("stream response without body")
	}
	return resp.Body, nil
}
