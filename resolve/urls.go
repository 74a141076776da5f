package resolve

import (
	"context"

	"github.com/tonicoded/ytvideoshorts/internal/httpclient"
	"github.com/tonicoded/ytvideoshorts/types"
	"github.com/tonicoded/ytvideoshorts/youtube/cipher"
	"github.com/tonicoded/ytvideoshorts/youtube/formats"
)

// descrambleResolver is the production URLResolver: it locates the player.js
// build for the video and lets the cipher package undo the URL
// transformations.
type descrambleResolver struct {
	httpClient *httpclient.Client
}

func (d *descrambleResolver) ResolveURL(ctx context.Context, videoID string, f types.Format) (string, error) {
	dc, err := cipher.ForVideo(ctx, d.httpClient.HTTPClient, videoID)
	if err != nil {
		return "", err
	}
	return formats.ResolveURL(ctx, dc, f)
}
