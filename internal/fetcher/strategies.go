package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Strategy is one concrete method of retrieving a URL's content over HTTP.
// Adding or removing a strategy must not touch the driver loop in Fetch.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, rawURL string) (*ImageAsset, error)
}

// httpStatusError marks a non-2xx response so the driver can classify it.
type httpStatusError struct {
	Code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// restyStrategy is the shared implementation: each strategy owns a resty
// client configured once at construction.
type restyStrategy struct {
	name       string
	client     *resty.Client
	setReferer bool
}

func (s *restyStrategy) Name() string {
	return s.name
}

// Client exposes the underlying resty client for transport substitution in
// tests.
func (s *restyStrategy) Client() *resty.Client {
	return s.client
}

func (s *restyStrategy) Attempt(ctx context.Context, rawURL string) (*ImageAsset, error) {
	req := s.client.R().SetContext(ctx)
	if s.setReferer {
		if u, err := url.Parse(rawURL); err == nil {
			req.SetHeader("Referer", u.Scheme+"://"+u.Host)
		}
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &httpStatusError{Code: resp.StatusCode()}
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return &ImageAsset{
		Data:        body,
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

// newBrowserStrategy emulates a desktop browser: realistic user agent and
// accept headers, per-request referer derived from the URL origin, generous
// redirect budget, relaxed TLS verification for origins with broken chains.
func newBrowserStrategy() Strategy {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}).
		SetHeaders(map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		})
	return &restyStrategy{name: "browser", client: client, setReferer: true}
}

// newAppStrategy identifies itself honestly with a minimal custom user agent.
func newAppStrategy() Strategy {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)).
		SetHeader("User-Agent", "FoodLens/1.0")
	return &restyStrategy{name: "app", client: client}
}

// newBareStrategy sends the plainest possible request with a short timeout.
func newBareStrategy() Strategy {
	client := resty.New().
		SetTimeout(8 * time.Second)
	return &restyStrategy{name: "bare", client: client}
}
