package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// redirectServer maps short codes to destinations and serves 302s.
func redirectServer(t *testing.T, targets map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/")
		dest, ok := targets[code]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, r, dest, http.StatusFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testResolver rewrites short-link hosts to the test server so no real
// network traffic happens.
func testResolver(srv *httptest.Server) *Resolver {
	target, _ := url.Parse(srv.URL)
	return &Resolver{
		HTTPClient: &http.Client{
			Transport: rewriteTransport{host: target.Host},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type rewriteTransport struct{ host string }

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = rt.host
	return http.DefaultTransport.RoundTrip(req)
}

func TestResolveNoShortLinks(t *testing.T) {
	r := New()
	for _, in := range []string{
		"",
		"plain text",
		"check this out bv1AbCdEfGhI please",
		"https://www.bilibili.com/video/BV1GJ411x7h7",
	} {
		if got := r.Resolve(context.Background(), in); got != in {
			t.Errorf("Resolve(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestResolveSingleLink(t *testing.T) {
	srv := redirectServer(t, map[string]string{
		"abc": "https://www.bilibili.com/video/BV1GJ411x7h7",
	})
	r := testResolver(srv)

	got := r.Resolve(context.Background(), "look https://b23.tv/abc here")
	want := "look https://www.bilibili.com/video/BV1GJ411x7h7 here"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveSchemelessLink(t *testing.T) {
	srv := redirectServer(t, map[string]string{
		"xyz": "https://www.bilibili.com/video/BV1xxxxxxxxx",
	})
	r := testResolver(srv)

	got := r.Resolve(context.Background(), "b23.wtf/xyz")
	if !strings.Contains(got, "BV1xxxxxxxxx") {
		t.Errorf("Resolve = %q, want resolved destination", got)
	}
}

func TestResolveMultipleLinksInOrder(t *testing.T) {
	srv := redirectServer(t, map[string]string{
		"one": "https://www.bilibili.com/video/BV1aaaaaaaaa",
		"two": "https://www.bilibili.com/video/BV2bbbbbbbbb",
	})
	r := testResolver(srv)

	got := r.Resolve(context.Background(), "https://b23.tv/one and https://b23.tv/two")
	first := strings.Index(got, "BV1aaaaaaaaa")
	second := strings.Index(got, "BV2bbbbbbbbb")
	if first < 0 || second < 0 {
		t.Fatalf("Resolve = %q, want both destinations", got)
	}
	if first > second {
		t.Errorf("Resolve = %q, destinations out of order", got)
	}
}

func TestResolveFailureLeavesLinkInPlace(t *testing.T) {
	srv := redirectServer(t, map[string]string{
		"good": "https://www.bilibili.com/video/BV1ccccccccc",
	})
	r := testResolver(srv)

	in := "https://b23.tv/dead then https://b23.tv/good"
	got := r.Resolve(context.Background(), in)
	if !strings.Contains(got, "https://b23.tv/dead") {
		t.Errorf("Resolve = %q, want failed link preserved", got)
	}
	if !strings.Contains(got, "BV1ccccccccc") {
		t.Errorf("Resolve = %q, want good link resolved", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	srv := redirectServer(t, map[string]string{
		"aaa": "https://www.bilibili.com/video/BV1ddddddddd",
	})
	r := testResolver(srv)

	once := r.Resolve(context.Background(), "see https://bili2233.cn/aaa")
	twice := r.Resolve(context.Background(), once)
	if once != twice {
		t.Errorf("second Resolve = %q, want %q", twice, once)
	}
}

func TestResolveNetworkError(t *testing.T) {
	r := &Resolver{
		HTTPClient: &http.Client{
			Transport: errTransport{},
		},
	}
	in := "https://b23.tv/broken"
	if got := r.Resolve(context.Background(), in); got != in {
		t.Errorf("Resolve = %q, want original text on transport error", got)
	}
}

type errTransport struct{}

func (errTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("dial refused")
}
