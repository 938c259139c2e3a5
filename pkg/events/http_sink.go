package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPSink posts impression batches as JSON arrays to the analytics
// endpoint. Zero value is not usable; use NewHTTPSink.
type HTTPSink struct {
	client   *http.Client
	endpoint string
}

// HTTPSinkOption configures an HTTPSink.
type HTTPSinkOption func(*HTTPSink)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSink creates a sink posting to the given endpoint URL.
func NewHTTPSink(endpoint string, opts ...HTTPSinkOption) *HTTPSink {
	s := &HTTPSink{
		// Reused across batches for connection pooling.
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers one batch. A non-2xx response is an error; the dispatcher
// logs and drops the batch, it does not retry.
func (s *HTTPSink) Send(ctx context.Context, batch []Impression) error {
	if len(batch) == 0 {
		return nil
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return errors.Join(ErrSinkFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(ErrSinkFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Join(ErrSinkFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d", ErrSinkFailed, resp.StatusCode)
	}
	return nil
}
