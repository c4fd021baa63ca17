// Package fetcher acquires raw image bytes from arbitrary remote URLs.
//
// Different origins impose different anti-bot and anti-hotlinking defenses,
// so a single fixed request shape fails too often on user-supplied URLs.
// The fetcher keeps an ordered list of strategies, most capable first, and
// returns the first successful response.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/timmy/foodlens/internal/logger"
)

// DefaultMaxBytes is the cap on downloaded image payloads (10 MiB).
const DefaultMaxBytes = 10 * 1024 * 1024

var (
	// ErrInvalidURL is returned when the input does not parse as an
	// absolute http(s) URL. No network attempt is made.
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrNotAnImage is returned when the response body is not image content.
	ErrNotAnImage = errors.New("URL does not point to a valid image")

	// ErrPayloadTooLarge is returned when the body exceeds the size cap.
	ErrPayloadTooLarge = errors.New("image too large (max 10MB)")
)

// ImageAsset holds the raw bytes of a fetched or uploaded image.
type ImageAsset struct {
	Data        []byte
	ContentType string
}

// Size returns the byte length of the asset.
func (a *ImageAsset) Size() int64 {
	return int64(len(a.Data))
}

// FetchError aggregates the failure of every strategy into one error with a
// human-actionable message for the API response.
type FetchError struct {
	Message string // short classification, e.g. "Access forbidden - website blocks direct image access"
	Details string // underlying error text
	Err     error  // last strategy error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher tries each strategy in order and returns the first success.
type Fetcher struct {
	strategies []Strategy
	maxBytes   int64
	log        *logger.Logger
}

// New creates a Fetcher with the default strategy chain: full browser
// emulation, lightweight app identification, then a bare request.
func New(maxBytes int64, log *logger.Logger) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		strategies: []Strategy{
			newBrowserStrategy(),
			newAppStrategy(),
			newBareStrategy(),
		},
		maxBytes: maxBytes,
		log:      log,
	}
}

// NewWithStrategies creates a Fetcher with an explicit strategy chain.
func NewWithStrategies(maxBytes int64, log *logger.Logger, strategies ...Strategy) *Fetcher {
	f := New(maxBytes, log)
	if len(strategies) > 0 {
		f.strategies = strategies
	}
	return f
}

// Fetch downloads the image at rawURL. Strategies run strictly sequentially;
// the first 2xx response with a body wins. After download the content type
// must be image/* and the size must not exceed the cap.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*ImageAsset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	var lastErr error
	for _, s := range f.strategies {
		asset, err := s.Attempt(ctx, rawURL)
		if err != nil {
			f.log.WithFields(logger.Fields{
				logger.FieldStrategy:  s.Name(),
				logger.FieldSourceURL: rawURL,
			}).WithError(err).Warn("Download strategy failed")
			lastErr = err
			continue
		}

		f.log.WithFields(logger.Fields{
			logger.FieldStrategy: s.Name(),
			logger.FieldSize:     len(asset.Data),
		}).Info("Download strategy succeeded")

		if err := f.validate(asset); err != nil {
			return nil, err
		}
		return asset, nil
	}

	return nil, classify(lastErr)
}

// validate enforces the image content-type and size cap on a fetched asset.
// Servers that omit or lie about Content-Type get a second chance via
// content sniffing.
func (f *Fetcher) validate(asset *ImageAsset) error {
	ct := asset.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(asset.Data).String()
		asset.ContentType = ct
	}
	if !strings.HasPrefix(ct, "image/") {
		return ErrNotAnImage
	}
	if asset.Size() > f.maxBytes {
		return ErrPayloadTooLarge
	}
	return nil
}

// classify turns the last strategy error into a FetchError with a message
// the user can act on.
func classify(err error) *FetchError {
	fe := &FetchError{
		Message: "Failed to download image from URL",
		Err:     err,
	}
	if err == nil {
		fe.Details = "no download strategy succeeded"
		return fe
	}
	fe.Details = err.Error()

	var statusErr *httpStatusError
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.Code == 403:
			fe.Message = "Access forbidden - website blocks direct image access"
			fe.Details = "Try using a different image URL or upload the image directly"
		case statusErr.Code == 404:
			fe.Message = "Image not found at this URL"
		case statusErr.Code >= 400:
			fe.Message = fmt.Sprintf("Server error (%d)", statusErr.Code)
		}
	case errors.As(err, &dnsErr):
		fe.Message = "URL not found or domain doesn't exist"
	case errors.Is(err, syscall.ECONNREFUSED):
		fe.Message = "Connection refused by server"
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, context.DeadlineExceeded):
		fe.Message = "Request timed out - server took too long to respond"
	}

	return fe
}
