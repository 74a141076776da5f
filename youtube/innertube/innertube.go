// Package innertube implements the format catalog client for the InnerTube
// /player endpoint, parameterized by client persona.
package innertube

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/tonicoded/ytvideoshorts/internal/logger"
)

const (
	ytBase                = "https://www.youtube.com"
	playerPath            = "/youtubei/v1/player"
	userAgentValue        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	headerContentTypeJSON = "application/json"
	defaultClientVersion  = "2.20250312.04.00"
	visitorIDMaxAge       = 10 * time.Hour
)

var (
	apiKeyRe    = regexp.MustCompile(`"INNERTUBE_API_KEY":"([^"]+)"`)
	clientVerRe = regexp.MustCompile(`"INNERTUBE_CLIENT_VERSION":"([^"]+)"`)
)

// PlayerResponse represents a response from the InnerTube /player endpoint.
type PlayerResponse struct {
	StreamingData struct {
		Formats         []any `json:"formats"`
		AdaptiveFormats []any `json:"adaptiveFormats"`
	} `json:"streamingData"`
	VideoDetails struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
		Author  string `json:"author"`
	} `json:"videoDetails"`
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

// Client fetches format catalogs from the InnerTube API. A single Client is
// shared by all requests, so scraped credentials and the visitor ID are
// guarded by a mutex.
type Client struct {
	HTTPClient *http.Client
	// BaseURL overrides the upstream origin, for tests.
	BaseURL string

	mu        sync.Mutex
	apiKey    string
	webVer    string
	visitorID struct {
		value   string
		updated time.Time
	}

	log *logger.ComponentLogger
}

// New creates a new InnerTube client. If httpClient is nil a default client
// with a tuned transport is used.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ReadBufferSize:        16 * 1024,
				WriteBufferSize:       16 * 1024,
			},
			Timeout: 30 * time.Second,
		}
	}
	return &Client{
		HTTPClient: httpClient,
		log:        logger.WithComponent(logger.ComponentInnerTube),
	}
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return ytBase
}

// ensureKey scrapes the API key and web client version from the site when
// they are not known yet. Several page sources are tried in order.
func (c *Client) ensureKey(ctx context.Context, videoID string) {
	c.mu.Lock()
	have := c.apiKey != "" && c.webVer != ""
	c.mu.Unlock()
	if have {
		return
	}

	sources := []string{
		c.base() + "/watch?v=" + videoID,
		c.base(),
		c.base() + "/feed/trending",
	}

	for _, source := range sources {
		c.mu.Lock()
		have = c.apiKey != "" && c.webVer != ""
		c.mu.Unlock()
		if have {
			break
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", userAgentValue)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
		req.Header.Set("Accept-Encoding", "identity")

		resp, err := c.HTTPClient.Do(req)
		if err != nil || resp == nil {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			continue
		}

		c.mu.Lock()
		if c.apiKey == "" {
			if m := apiKeyRe.FindSubmatch(body); len(m) == 2 {
				c.apiKey = string(m[1])
			}
		}
		if c.webVer == "" {
			if m := clientVerRe.FindSubmatch(body); len(m) == 2 {
				c.webVer = string(m[1])
			}
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.webVer == "" {
		c.webVer = defaultClientVersion
	}
	c.mu.Unlock()
}

// Player fetches the format catalog for videoID under the given persona.
func (c *Client) Player(ctx context.Context, videoID string, persona Persona) (*PlayerResponse, error) {
	c.ensureKey(ctx, videoID)

	c.mu.Lock()
	key := c.apiKey
	webVer := c.webVer
	c.mu.Unlock()
	if key == "" {
		return nil, errors.New("innertube: api key not found")
	}

	version := persona.version()
	if persona == PersonaWeb && webVer != "" {
		version = webVer
	}
	clientMap, reqUserAgent := persona.context(version)

	requestBody, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"client": clientMap,
		},
		"videoId": videoID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+playerPath+"?key="+key, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", headerContentTypeJSON)
	req.Header.Set("User-Agent", reqUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Referer", ytBase+"/")
	req.Header.Set("Origin", ytBase)
	if code := persona.code(); code != "" {
		req.Header.Set("X-YouTube-Client-Name", code)
	}
	req.Header.Set("X-YouTube-Client-Version", version)
	if visitorID := c.getVisitorID(ctx); visitorID != "" {
		req.Header.Set("x-goog-visitor-id", visitorID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("player response", map[string]any{
		"persona": string(persona),
		"status":  resp.StatusCode,
	})
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube: player status %d for persona %s", resp.StatusCode, persona)
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("innertube: gzip reader: %w", err)
		}
		defer func() { _ = gzReader.Close() }()
		reader = gzReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("innertube: read response: %w", err)
	}

	var playerResponse PlayerResponse
	if err := json.Unmarshal(body, &playerResponse); err != nil {
		return nil, fmt.Errorf("innertube: parse response: %w", err)
	}
	return &playerResponse, nil
}

// getVisitorID returns the current visitor ID, refreshing it when stale.
// Failures are non-fatal; requests simply omit the header.
func (c *Client) getVisitorID(ctx context.Context) string {
	c.mu.Lock()
	value := c.visitorID.value
	fresh := value != "" && time.Since(c.visitorID.updated) <= visitorIDMaxAge
	c.mu.Unlock()
	if fresh {
		return value
	}
	if err := c.refreshVisitorID(ctx); err != nil {
		c.log.Debug("visitor id refresh failed", map[string]any{"error": err.Error()})
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visitorID.value
}

// refreshVisitorID scrapes a new visitor ID from the site's ytcfg blob.
func (c *Client) refreshVisitorID(ctx context.Context) error {
	const sep = "\nytcfg.set("

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgentValue)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	_, cfg, found := strings.Cut(string(data), sep)
	if !found {
		return errors.New("visitor id not found in page")
	}

	var value struct {
		InnertubeContext struct {
			Client struct {
				VisitorData string `json:"visitorData"`
			} `json:"client"`
		} `json:"INNERTUBE_CONTEXT"`
	}
	if err := json.NewDecoder(strings.NewReader(cfg)).Decode(&value); err != nil {
		return err
	}

	c.mu.Lock()
	c.visitorID.value = strings.ReplaceAll(value.InnertubeContext.Client.VisitorData, "%3D", "=")
	c.visitorID.updated = time.Now()
	c.mu.Unlock()
	return nil
}
