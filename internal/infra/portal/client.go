// Package portal provides an HTTP client for the web portal whose session is watched.
package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// Config represents portal client configuration.
type Config struct {
	BaseURL           string
	LogoutPath        string
	Timeout           time.Duration
	SessionCookieName string
	SessionCookie     string // Seeded into the jar when set
}

// Client talks to the portal with a cookie jar carrying the session.
type Client struct {
	baseURL    *url.URL
	logoutPath string
	httpClient *http.Client
}

// Visit is the result of navigating to a portal page.
type Visit struct {
	URL        string // Final URL after redirects
	StatusCode int
}

// New creates a new portal client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("portal base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse portal base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("portal base URL must be absolute: %s", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	if cfg.SessionCookie != "" {
		name := cfg.SessionCookieName
		if name == "" {
			name = "sessionid"
		}
		jar.SetCookies(base, []*http.Cookie{{
			Name:  name,
			Value: cfg.SessionCookie,
			Path:  "/",
		}})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logoutPath := cfg.LogoutPath
	if logoutPath == "" {
		logoutPath = "/logout"
	}

	return &Client{
		baseURL:    base,
		logoutPath: logoutPath,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// Logout issues the logout request. The response body is discarded; only
// transport failures and error statuses are reported.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.get(ctx, c.logoutPath)
	if err != nil {
		return errors.Wrap(err, "logout request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Newf("logout returned status %d", resp.StatusCode)
	}

	zlog.Debug().Msgf("portal: logout completed: status=%d url=%s", resp.StatusCode, resp.Request.URL)
	return nil
}

// Navigate loads path, following redirects, and reports where it ended up.
func (c *Client) Navigate(ctx context.Context, path string) (*Visit, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Visit{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}

// HasSession reports whether the jar still holds a cookie for the portal.
func (c *Client) HasSession() bool {
	return len(c.httpClient.Jar.Cookies(c.baseURL)) > 0
}

// URL joins path onto the portal base URL, keeping any path prefix of the base.
func (c *Client) URL(path string) string {
	u := *c.baseURL
	u.RawQuery = ""
	u.Fragment = ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, u.RawQuery = path[:i], path[i+1:]
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	return u.String()
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	return c.httpClient.Do(req)
}
