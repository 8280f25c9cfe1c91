// Package resolver expands bilibili short redirect links (b23.tv and
// friends) found in chat text into their destination URLs so a BV id can
// be extracted downstream.
package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// shortLinkPattern matches URLs on the known bilibili redirect hosts.
var shortLinkPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:https?://)?(?:b23\.(?:tv|wtf)|bili2233\.cn)/\S+`)
})

// Resolver resolves short links with a single no-follow redirect probe per
// link. The zero value is not usable; construct with New.
type Resolver struct {
	HTTPClient *http.Client
}

// New returns a Resolver with a sane default client: redirects are not
// followed (we only want the Location header) and requests are bounded.
func New() *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Timeout: 10 * time.Second,
		},
	}
}

// Resolve replaces every short link in text with its resolved destination
// URL, left to right. A link that fails to resolve (network error,
// non-redirect response) is left in place; a later stage may still find an
// identifier elsewhere in the message. Text without short links is
// returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, text string) string {
	matches := shortLinkPattern().FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		link := text[m[0]:m[1]]
		if dest, ok := r.resolveOne(ctx, link); ok {
			b.WriteString(dest)
		} else {
			b.WriteString(link)
		}
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// resolveOne probes a single short link and returns the redirect target.
func (r *Resolver) resolveOne(ctx context.Context, link string) (string, bool) {
	url := link
	if !strings.HasPrefix(strings.ToLower(url), "http://") && !strings.HasPrefix(strings.ToLower(url), "https://") {
		url = "https://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Debug("short link request build failed", slog.String("link", link), slog.Any("err", err))
		return "", false
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		slog.Debug("short link resolve failed", slog.String("link", link), slog.Any("err", err))
		return "", false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		slog.Debug("short link did not redirect", slog.String("link", link), slog.Int("status", resp.StatusCode))
		return "", false
	}
	dest := resp.Header.Get("Location")
	if dest == "" {
		return "", false
	}
	return dest, true
}
