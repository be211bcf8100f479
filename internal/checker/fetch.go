package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

// Page is a fetched document.
type Page struct {
	FinalURL   string // URL reached after following redirects
	Body       string
	StatusCode int
}

// Fetcher retrieves a page over the network.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// FetchError reports that the target URL could not be reached.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errors.ErrFetch) match any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == sharedErrors.ErrFetch
}

// HTTPFetcher performs a single GET, following redirects transparently.
type HTTPFetcher struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UserAgent    string
	// Transport overrides the default transport (tests inject TLS test clients here).
	Transport http.RoundTripper
}

// Fetch issues the GET. Non-2xx responses are returned as pages, not errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	client := &http.Client{
		Timeout:       f.timeout(),
		Transport:     f.transport(),
		CheckRedirect: f.checkRedirect,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes()))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Page{
		FinalURL:   resp.Request.URL.String(),
		Body:       string(body),
		StatusCode: resp.StatusCode,
	}, nil
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	limit := f.MaxRedirects
	if limit <= 0 {
		limit = constants.DefaultMaxRedirects
	}
	if len(via) >= limit {
		return fmt.Errorf("stopped after %d redirects", limit)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	return nil
}

func (f *HTTPFetcher) timeout() time.Duration {
	if f.Timeout <= 0 {
		return constants.DefaultFetchTimeout
	}
	return f.Timeout
}

func (f *HTTPFetcher) maxBodyBytes() int64 {
	if f.MaxBodyBytes <= 0 {
		return constants.DefaultMaxBodyBytes
	}
	return f.MaxBodyBytes
}

func (f *HTTPFetcher) transport() http.RoundTripper {
	if f.Transport != nil {
		return f.Transport
	}
	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}
