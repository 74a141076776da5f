package cipher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/robertkrimen/otto"

	"github.com/tonicoded/ytvideoshorts/errs"
	"github.com/tonicoded/ytvideoshorts/internal/logger"
)

const (
	userAgentValue   = "Mozilla/5.0"
	ytBase           = "https://www.youtube.com"
	decipherFuncName = "decipher"
	ncodeFuncName    = "ncode"

	playerJSTTL = 10 * time.Minute
)

var playerJSURLRegex = regexp.MustCompile(`"jsUrl":"([^"]+)"`)

// player.js cache by URL
var (
	playerJSCache   = make(map[string]playerJSCacheEntry)
	playerJSCacheMu sync.Mutex
)

type playerJSCacheEntry struct {
	body  []byte
	expAt time.Time
}

// Descrambler reverses the URL transformations applied by a specific
// player.js build: the signature scramble and the n-parameter throttle
// encoding. Upstream-supplied code runs in a throwaway VM with nothing but a
// stubbed console exposed.
type Descrambler struct {
	httpClient  *http.Client
	playerJSURL string
	log         *logger.ComponentLogger
}

// New creates a Descrambler for the given player.js URL.
func New(httpClient *http.Client, playerJSURL string) *Descrambler {
	return &Descrambler{
		httpClient:  httpClient,
		playerJSURL: playerJSURL,
		log:         logger.WithComponent(logger.ComponentCipher),
	}
}

// ForVideo locates the player.js build referenced by the video's watch page
// and returns a Descrambler bound to it.
func ForVideo(ctx context.Context, httpClient *http.Client, videoID string) (*Descrambler, error) {
	playerJSURL, err := FetchPlayerJSURL(ctx, httpClient, ytBase+"/watch?v="+videoID)
	if err != nil {
		return nil, err
	}
	return New(httpClient, playerJSURL), nil
}

// FetchPlayerJSURL scrapes the player.js URL from a video page.
func FetchPlayerJSURL(ctx context.Context, httpClient *http.Client, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgentValue)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	m := playerJSURLRegex.FindSubmatch(body)
	if len(m) < 2 || len(m[1]) == 0 {
		return "", fmt.Errorf("player js url not found in video page")
	}
	jsPath := strings.ReplaceAll(string(m[1]), `\/`, `/`)
	if strings.HasPrefix(jsPath, "http") {
		return jsPath, nil
	}
	return ytBase + jsPath, nil
}

func (d *Descrambler) playerJS(ctx context.Context) ([]byte, error) {
	playerJSCacheMu.Lock()
	entry, ok := playerJSCache[d.playerJSURL]
	if ok && time.Now().Before(entry.expAt) {
		body := entry.body
		playerJSCacheMu.Unlock()
		return body, nil
	}
	playerJSCacheMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.playerJSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("player.js request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentValue)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download player.js: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read player.js: %w", err)
	}

	playerJSCacheMu.Lock()
	playerJSCache[d.playerJSURL] = playerJSCacheEntry{body: body, expAt: time.Now().Add(playerJSTTL)}
	playerJSCacheMu.Unlock()
	return body, nil
}

// Decipher descrambles a stream signature. The regex parser handles the
// common transform chains without executing any upstream code; scripts it
// cannot parse fall through to an isolated otto VM.
func (d *Descrambler) Decipher(ctx context.Context, signature string) (string, error) {
	playerJS, err := d.playerJS(ctx)
	if err != nil {
		return "", err
	}
	if out, ok := tryRegexDecipher(string(playerJS), signature); ok {
		return out, nil
	}
	d.log.Debug("regex decipher failed, falling back to vm")

	vm := otto.New()
	if _, err := vm.Run(string(playerJS)); err != nil {
		return "", fmt.Errorf("%w: run player.js: %v", errs.ErrCipherFailed, err)
	}
	value, err := vm.Call(decipherFuncName, nil, signature)
	if err != nil {
		return "", fmt.Errorf("%w: call %s: %v", errs.ErrCipherFailed, decipherFuncName, err)
	}
	result, err := value.ToString()
	if err != nil {
		return "", fmt.Errorf("%w: %s did not return a string: %v", errs.ErrCipherFailed, decipherFuncName, err)
	}
	return result, nil
}

// TransformN decodes the n-parameter (throttling token). The script runs in
// a fresh goja VM exposing only a no-op console; when the script defines no
// transform, the original value is returned unchanged.
func (d *Descrambler) TransformN(ctx context.Context, nval string) (string, error) {
	playerJS, err := d.playerJS(ctx)
	if err != nil {
		return "", err
	}

	vm := goja.New()
	_ = vm.Set("console", map[string]any{
		"log":   func(...any) {},
		"warn":  func(...any) {},
		"error": func(...any) {},
	})
	if _, err := vm.RunString(string(playerJS)); err != nil {
		return "", fmt.Errorf("%w: run player.js: %v", errs.ErrCipherFailed, err)
	}

	fn, ok := goja.AssertFunction(vm.Get(ncodeFuncName))
	if !ok {
		return nval, nil
	}
	res, err := fn(goja.Undefined(), vm.ToValue(nval))
	if err != nil {
		return "", fmt.Errorf("%w: call %s: %v", errs.ErrCipherFailed, ncodeFuncName, err)
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return "", fmt.Errorf("%w: %s returned no value", errs.ErrCipherFailed, ncodeFuncName)
	}
	return res.String(), nil
}
