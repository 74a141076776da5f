// Package resolve drives format resolution and stream acquisition for a
// video: it iterates client personas until a usable candidate is found, then
// works through an ordered list of acquisition strategies until one yields
// an open byte stream.
package resolve

import (
	"context"
	"io"
	"strings"

	"github.com/tonicoded/ytvideoshorts/errs"
	"github.com/tonicoded/ytvideoshorts/internal/httpclient"
	"github.com/tonicoded/ytvideoshorts/internal/logger"
	"github.com/tonicoded/ytvideoshorts/types"
	"github.com/tonicoded/ytvideoshorts/youtube/formats"
	"github.com/tonicoded/ytvideoshorts/youtube/innertube"
)

// Catalog fetches the upstream format catalog for a video under a persona.
type Catalog interface {
	Player(ctx context.Context, videoID string, persona innertube.Persona) (*innertube.PlayerResponse, error)
}

// URLResolver turns a format into a fetchable URL, descrambling when needed.
type URLResolver interface {
	ResolveURL(ctx context.Context, videoID string, f types.Format) (string, error)
}

// Selection is the outcome of one resolution pass: the chosen candidate,
// whether it is video-only, and the catalog metadata needed downstream.
type Selection struct {
	Info      types.VideoInfo
	Candidate types.Format
	VideoOnly bool
}

// Target is the terminal artifact of a successful acquisition. It is
// consumed exactly once by the relay; Body must be closed by the consumer.
type Target struct {
	Body      io.ReadCloser
	Title     string
	MimeType  string
	VideoOnly bool
}

// rawFallbackPersonas is the persona subset retried by the last-resort
// download path.
var rawFallbackPersonas = []innertube.Persona{innertube.PersonaAndroid, innertube.PersonaWeb}

// Resolver owns one resolution-and-acquisition pipeline. It holds no
// per-request state and is safe for concurrent use.
type Resolver struct {
	catalog  Catalog
	http     *httpclient.Client
	urls     URLResolver
	personas []innertube.Persona
	log      *logger.ComponentLogger
}

// New creates a Resolver over the given catalog. A nil httpClient gets the
// default tuned client; the default URL resolver descrambles via player.js.
func New(catalog Catalog, httpClient *httpclient.Client) *Resolver {
	if httpClient == nil {
		httpClient = httpclient.New()
	}
	return &Resolver{
		catalog:  catalog,
		http:     httpClient,
		urls:     &descrambleResolver{httpClient: httpClient},
		personas: innertube.DefaultOrder,
		log:      logger.WithComponent(logger.ComponentResolve),
	}
}

// WithURLResolver overrides the descrambling URL resolver, for tests.
func (r *Resolver) WithURLResolver(urls URLResolver) *Resolver {
	r.urls = urls
	return r
}

// WithPersonas overrides the persona iteration order, for tests.
func (r *Resolver) WithPersonas(personas []innertube.Persona) *Resolver {
	r.personas = personas
	return r
}

// Resolve iterates personas in order until one yields a candidate. Within a
// persona a combined stream is preferred over video-only; a persona whose
// catalog fetch fails is logged and skipped, never fatal on its own. When
// every persona is exhausted without a candidate, ErrNoFormatFound is
// returned.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (*Selection, error) {
	for _, persona := range r.personas {
		pr, err := r.catalog.Player(ctx, videoID, persona)
		if err != nil {
			r.log.Warn("catalog fetch failed", map[string]any{
				"persona": string(persona),
				"error":   err.Error(),
			})
			continue
		}
		if err := playabilityError(pr); err != nil {
			r.log.Warn("video not playable for persona", map[string]any{
				"persona": string(persona),
				"error":   err.Error(),
			})
			continue
		}

		info := types.VideoInfo{
			ID:      pr.VideoDetails.VideoID,
			Title:   pr.VideoDetails.Title,
			Author:  pr.VideoDetails.Author,
			Formats: formats.Parse(pr),
		}
		if info.ID == "" {
			info.ID = videoID
		}

		if best := formats.Best(info.Formats, true); best != nil {
			r.log.Info("combined format chosen", map[string]any{
				"persona": string(persona),
				"itag":    best.Itag,
				"height":  best.Height,
			})
			return &Selection{Info: info, Candidate: *best, VideoOnly: false}, nil
		}
		if best := formats.Best(info.Formats, false); best != nil {
			r.log.Info("video-only format chosen", map[string]any{
				"persona": string(persona),
				"itag":    best.Itag,
				"height":  best.Height,
			})
			return &Selection{Info: info, Candidate: *best, VideoOnly: true}, nil
		}
	}
	return nil, errs.ErrNoFormatFound
}

// Run performs a full resolution pass followed by acquisition.
func (r *Resolver) Run(ctx context.Context, videoID string) (*Target, error) {
	sel, err := r.Resolve(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return r.Acquire(ctx, videoID, sel)
}

// playabilityError maps an unplayable catalog status to a sentinel error.
func playabilityError(pr *innertube.PlayerResponse) error {
	status := strings.ToUpper(pr.PlayabilityStatus.Status)
	reason := strings.ToLower(pr.PlayabilityStatus.Reason)
	switch status {
	case "ERROR":
		if strings.Contains(reason, "geograph") || strings.Contains(reason, "available in your country") {
			return errs.ErrGeoBlocked
		}
		if strings.Contains(reason, "rate limit") || strings.Contains(reason, "quota") {
			return errs.ErrRateLimited
		}
		return errs.ErrVideoUnavailable
	case "LOGIN_REQUIRED":
		return errs.ErrAgeRestricted
	case "UNPLAYABLE":
		if strings.Contains(reason, "private") {
			return errs.ErrPrivate
		}
		return errs.ErrVideoUnavailable
	}
	return nil
}
