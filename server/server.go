// Package server exposes the download pipeline over HTTP: a single GET
// endpoint that accepts a video link and relays the resolved media stream
// back as an MP4 attachment.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/mux"

	"github.com/tonicoded/ytvideoshorts/errs"
	"github.com/tonicoded/ytvideoshorts/internal/httpclient"
	"github.com/tonicoded/ytvideoshorts/internal/logger"
	"github.com/tonicoded/ytvideoshorts/internal/sanitize"
	"github.com/tonicoded/ytvideoshorts/resolve"
	"github.com/tonicoded/ytvideoshorts/videoid"
	"github.com/tonicoded/ytvideoshorts/youtube/innertube"
)

// DownloadPath is the route of the download endpoint.
const DownloadPath = "/api/download"

const copyBufferSizeBytes = 32 * 1024

// User-facing failure messages, one per error category.
const (
	msgMissingURL       = "Please provide a video link."
	msgDuplicateURL     = "Provide the video link exactly once."
	msgNotVideoLink     = "That does not look like a supported video link."
	msgNoFormatFound    = "No downloadable format was found for this video."
	msgDownloadFailed   = "The video could not be downloaded. Please try again later."
	msgMethodNotAllowed = "Only GET requests are supported."
)

// Pipeline resolves a video ID into an open media stream.
type Pipeline interface {
	Run(ctx context.Context, videoID string) (*resolve.Target, error)
}

// Server handles download requests. The upstream catalog client behind the
// pipeline is created once, on first use, and shared by every request.
type Server struct {
	pipeline func() Pipeline
	log      *logger.ComponentLogger
}

// New creates a Server with the production pipeline. The catalog client is
// lazily initialized exactly once even under concurrent first requests.
func New() *Server {
	return &Server{
		pipeline: sync.OnceValue(func() Pipeline {
			hc := httpclient.New()
			return resolve.New(innertube.New(hc.HTTPClient), hc)
		}),
		log: logger.WithComponent(logger.ComponentServer),
	}
}

// NewWithPipeline creates a Server around a prebuilt pipeline, for tests.
func NewWithPipeline(p Pipeline) *Server {
	return &Server{
		pipeline: func() Pipeline { return p },
		log:      logger.WithComponent(logger.ComponentServer),
	}
}

// Router builds the HTTP router: the download endpoint, a health probe, and
// an explicit 405 for disallowed methods.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, AccessLog(s.log))
	r.HandleFunc(DownloadPath, s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// handleDownload validates the url parameter, runs the pipeline, and relays
// the acquired stream. Input problems never reach the upstream; pipeline
// failures map to a single structured 500.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	values, ok := r.URL.Query()["url"]
	if !ok || len(values) == 0 {
		writeError(w, http.StatusBadRequest, msgMissingURL)
		return
	}
	if len(values) > 1 {
		writeError(w, http.StatusBadRequest, msgDuplicateURL)
		return
	}

	// Tolerate double-encoded links; an undecodable value is used as-is.
	raw := values[0]
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}

	id, err := videoid.FromURL(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNotVideoLink)
		return
	}

	target, err := s.pipeline().Run(r.Context(), id)
	if err != nil {
		s.log.Error("pipeline failed", map[string]any{"videoId": id, "error": err.Error()})
		if errors.Is(err, errs.ErrNoFormatFound) {
			writeError(w, http.StatusInternalServerError, msgNoFormatFound)
			return
		}
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	defer func() { _ = target.Body.Close() }()

	filename := sanitize.Title(target.Title) + ".mp4"
	h := w.Header()
	h.Set("Content-Type", target.MimeType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Cache-Control", "no-store")
	h.Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)

	s.relay(w, target)
}

// relay forwards stream bytes as they arrive, flushing after each write so
// nothing buffers the payload. Once headers are committed there is no
// corrective path: any stream or client error tears the connection down.
func (s *Server) relay(w http.ResponseWriter, target *resolve.Target) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, copyBufferSizeBytes)
	var sent int64

	for {
		n, rerr := target.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				s.log.Warn("client went away mid-stream", map[string]any{
					"sentBytes": sent,
					"error":     werr.Error(),
				})
				panic(http.ErrAbortHandler)
			}
			sent += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				s.log.Info("relay complete", map[string]any{"sentBytes": sent})
				return
			}
			s.log.Error("stream failed mid-transfer", map[string]any{
				"sentBytes": sent,
				"error":     rerr.Error(),
			})
			panic(http.ErrAbortHandler)
		}
	}
}

// writeError emits the single structured error body used by every terminal
// failure path.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
