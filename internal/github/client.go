package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	logx "ghnotify/pkg/logx"
)

const (
	defaultAPIBase   = "https://api.github.com"
	defaultUserAgent = "ghnotify"
	defaultTimeout   = 15 * time.Second

	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"
)

// Config configures the REST client.
type Config struct {
	Token     string
	APIBase   string // default https://api.github.com
	UserAgent string
	Timeout   time.Duration

	// PerPage/PageLimit bound the /notifications pagination walk.
	PerPage   int // default 50
	PageLimit int // default 5
}

// Client is a minimal GitHub REST v3 client covering the notification feed
// and the handful of detail lookups the formatter needs.
type Client struct {
	hc        *http.Client
	base      string
	userAgent string
	perPage   int
	pageLimit int
	log       logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = defaultAPIBase
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 5
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = timeout

	return &Client{
		hc:        hc,
		base:      base,
		userAgent: ua,
		perPage:   perPage,
		pageLimit: pageLimit,
		log:       log,
	}
}

// getJSON issues a GET and decodes the body into out. target may be a path
// relative to the API base or an absolute URL (subject URLs come back
// absolute from the feed).
func (c *Client) getJSON(ctx context.Context, target string, query url.Values, out any) error {
	u := target
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = c.base + "/" + strings.TrimLeft(u, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s: %w", req.URL.Path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("github: %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: %s: decode: %w", req.URL.Path, err)
	}
	return nil
}
