package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Source delivers settings snapshots. Implementations may fetch over the
// network, read fixtures from disk, or serve canned payloads in tests.
type Source interface {
	Fetch(ctx context.Context) (*Settings, error)
}

// HTTPSource fetches settings from the config delivery endpoint.
// Zero value is not usable; use NewHTTPSource.
type HTTPSource struct {
	client    *http.Client
	baseURL   string
	accountID int
	sdkKey    string
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient overrides the default HTTP client, e.g. for tests or
// custom transports.
func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSource creates a settings source for the given account.
func NewHTTPSource(baseURL string, accountID int, sdkKey string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		// Reused across requests for connection pooling.
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   baseURL,
		accountID: accountID,
		sdkKey:    sdkKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads and parses the current settings snapshot.
func (s *HTTPSource) Fetch(ctx context.Context) (*Settings, error) {
	endpoint, err := url.Parse(s.baseURL + "/settings")
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	q := endpoint.Query()
	q.Set("accountId", strconv.Itoa(s.accountID))
	q.Set("sdkKey", s.sdkKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	return Parse(payload)
}
