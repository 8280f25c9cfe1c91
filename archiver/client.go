// Package archiver is a minimal client for the remote biliarchiver HTTP
// service: submit an id, check archive status, list the pending queue.
//
// Transport and non-2xx failures are never surfaced as errors to callers.
// They are normalized to domain outcomes (rejected / not ready / empty
// queue) per the service contract, and logged here instead.
package archiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/bili-relay/bvid"
)

// Client talks to one archive service instance.
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
}

// New builds a Client for the given base URL.
func New(base *url.URL) *Client {
	return &Client{
		BaseURL: base,
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.BaseURL
	return u.JoinPath(parts...).String()
}

// Add submits an id for archiving. Returns true only when the service
// answered 200; any other status or transport error counts as rejection.
// Submitting an id that is already queued or archived is safe.
func (c *Client) Add(ctx context.Context, bv bvid.Bvid) bool {
	body, _ := json.Marshal(map[string]string{"id": bv.String()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("add"), bytes.NewReader(body))
	if err != nil {
		slog.Warn("archive add request build failed", slog.String("bvid", bv.String()), slog.Any("err", err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		slog.Warn("archive add failed", slog.String("bvid", bv.String()), slog.Any("err", err))
		return false
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		slog.Warn("archive add rejected", slog.String("bvid", bv.String()), slog.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// Check queries archive status for an id. It returns the artifact URL and
// true once archiving completed. Pending items, transport errors, and
// malformed responses all report "not ready": the caller cannot tell them
// apart, which matches the polling loop treating every non-success as
// "try again later".
func (c *Client) Check(ctx context.Context, bv bvid.Bvid) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("check", bv.String()), nil)
	if err != nil {
		slog.Debug("archive check request build failed", slog.String("bvid", bv.String()), slog.Any("err", err))
		return "", false
	}
	resp, err := c.http().Do(req)
	if err != nil {
		slog.Debug("archive check failed", slog.String("bvid", bv.String()), slog.Any("err", err))
		return "", false
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Debug("archive check decode failed", slog.String("bvid", bv.String()), slog.Any("err", err))
		return "", false
	}
	if body.URL == "" {
		return "", false
	}
	return body.URL, true
}

// Queue lists ids currently pending or in progress, in the service's
// reported order. An unreachable service yields an empty queue.
func (c *Client) Queue(ctx context.Context) []bvid.Bvid {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("queue"), nil)
	if err != nil {
		slog.Warn("archive queue request build failed", slog.Any("err", err))
		return nil
	}
	resp, err := c.http().Do(req)
	if err != nil {
		slog.Warn("archive queue failed", slog.Any("err", err))
		return nil
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		slog.Warn("archive queue rejected", slog.Int("status", resp.StatusCode))
		return nil
	}
	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		slog.Warn("archive queue decode failed", slog.Any("err", err))
		return nil
	}
	out := make([]bvid.Bvid, 0, len(ids))
	for _, id := range ids {
		bv, err := bvid.Parse(id)
		if err != nil {
			slog.Debug("archive queue entry skipped", slog.String("id", id))
			continue
		}
		out = append(out, bv)
	}
	return out
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// ParseBase validates the configured service base URL.
func ParseBase(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("archive service base URL empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse archive service base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("archive service base URL %q missing scheme or host", raw)
	}
	return u, nil
}
