package cipher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tonicoded/ytvideoshorts/errs"
)

const chainPlayerJS = `var Ab={rv:function(a){a.reverse()},sp:function(a,b){a.splice(0,b)},sw:function(a,b){var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c}};
function scramble(a){a=a.split("");Ab.sw(a,2);Ab.rv(a,1);Ab.sp(a,3);return a.join("")};`

func TestTryRegexDecipher(t *testing.T) {
	// swap(2): "cbadefghij", reverse: "jihgfedabc", splice(3): "gfedabc"
	got, ok := tryRegexDecipher(chainPlayerJS, "abcdefghij")
	if !ok {
		t.Fatal("transform chain not recognized")
	}
	if got != "gfedabc" {
		t.Errorf("deciphered = %q, want %q", got, "gfedabc")
	}
}

func TestTryRegexDecipherUnrecognized(t *testing.T) {
	if _, ok := tryRegexDecipher("function nothing(){return 1}", "abc"); ok {
		t.Fatal("unrecognized script reported as parsed")
	}
}

func TestDecipherRegexPath(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(chainPlayerJS))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/regex/base.js")
	got, err := d.Decipher(context.Background(), "abcdefghij")
	if err != nil {
		t.Fatalf("Decipher: %v", err)
	}
	if got != "gfedabc" {
		t.Errorf("deciphered = %q, want %q", got, "gfedabc")
	}

	// Second call must hit the player.js cache.
	if _, err := d.Decipher(context.Background(), "abcdefghij"); err != nil {
		t.Fatalf("second Decipher: %v", err)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("player.js fetched %d times, want 1", n)
	}
}

func TestDecipherVMFallback(t *testing.T) {
	// No split/join entry function, so the regex parser gives up and the
	// global decipher function runs in the VM instead.
	const js = `function decipher(sig){var out="";for(var i=sig.length-1;i>=0;i--){out+=sig.charAt(i)}return out};`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(js))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/vm/base.js")
	got, err := d.Decipher(context.Background(), "abcdef")
	if err != nil {
		t.Fatalf("Decipher: %v", err)
	}
	if got != "fedcba" {
		t.Errorf("deciphered = %q, want %q", got, "fedcba")
	}
}

func TestDecipherFailure(t *testing.T) {
	// Nothing for the regex parser to find and no global decipher function,
	// so the VM call fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`var unrelated = 1;`))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/broken/base.js")
	_, err := d.Decipher(context.Background(), "abcdef")
	if !errors.Is(err, errs.ErrCipherFailed) {
		t.Fatalf("Decipher error = %v, want ErrCipherFailed", err)
	}
}

func TestTransformNNoValue(t *testing.T) {
	const js = `function ncode(n){};`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(js))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/novalue/base.js")
	_, err := d.TransformN(context.Background(), "tok")
	if !errors.Is(err, errs.ErrCipherFailed) {
		t.Fatalf("TransformN error = %v, want ErrCipherFailed", err)
	}
}

func TestTransformN(t *testing.T) {
	const js = `function ncode(n){return n+"-decoded"};`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(js))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/n/base.js")
	got, err := d.TransformN(context.Background(), "tok")
	if err != nil {
		t.Fatalf("TransformN: %v", err)
	}
	if got != "tok-decoded" {
		t.Errorf("TransformN = %q, want %q", got, "tok-decoded")
	}
}

func TestTransformNWithoutTransform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`var unrelated = 1;`))
	}))
	defer srv.Close()

	d := New(srv.Client(), srv.URL+"/plain/base.js")
	got, err := d.TransformN(context.Background(), "tok")
	if err != nil {
		t.Fatalf("TransformN: %v", err)
	}
	if got != "tok" {
		t.Errorf("TransformN = %q, want input passed through", got)
	}
}

func TestFetchPlayerJSURL(t *testing.T) {
	t.Run("relative path", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<script>{"jsUrl":"\/s\/player\/abc123\/base.js"}</script>`))
		}))
		defer srv.Close()

		got, err := FetchPlayerJSURL(context.Background(), srv.Client(), srv.URL)
		if err != nil {
			t.Fatalf("FetchPlayerJSURL: %v", err)
		}
		want := ytBase + "/s/player/abc123/base.js"
		if got != want {
			t.Errorf("url = %q, want %q", got, want)
		}
	})

	t.Run("absolute url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsUrl":"https://cdn.example/base.js"}`))
		}))
		defer srv.Close()

		got, err := FetchPlayerJSURL(context.Background(), srv.Client(), srv.URL)
		if err != nil {
			t.Fatalf("FetchPlayerJSURL: %v", err)
		}
		if got != "https://cdn.example/base.js" {
			t.Errorf("url = %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>no player here</html>`))
		}))
		defer srv.Close()

		if _, err := FetchPlayerJSURL(context.Background(), srv.Client(), srv.URL); err == nil {
			t.Fatal("expected error when jsUrl is absent")
		}
	})
}
