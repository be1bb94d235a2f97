package httputil

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"vavato_scrooper/config"
)

// Client issues plain GETs against the target site. It never fails on a
// non-200 status; the caller decides what a status means.
type Client struct {
	rc *resty.Client
}

func NewClient(cfg *config.HTTPConfig) *Client {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	rc := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{rc: rc}
}

// Get returns the status code and body text of a GET request.
func (c *Client) Get(ctx context.Context, rawURL string) (int, string, error) {
	resp, err := c.rc.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}
