package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/segment"
	"github.com/dmitrymomot/flagkit/pkg/useragent"
)

// Request carries the partial signals available for resolution.
type Request struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Resolved is the gateway's answer: whichever attribute groups it could
// derive. Nil fields mean the group could not be resolved.
type Resolved struct {
	Location *segment.Location `json:"location,omitempty"`
	Device   *segment.Device   `json:"device,omitempty"`
}

// Resolver turns partial request signals into resolved segment attributes.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Resolved, error)
}

// HTTPResolver resolves attributes through the gateway service.
// Zero value is not usable; use NewHTTPResolver.
type HTTPResolver struct {
	client  *http.Client
	baseURL string
}

// HTTPResolverOption configures an HTTPResolver.
type HTTPResolverOption func(*HTTPResolver)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPResolverOption {
	return func(r *HTTPResolver) {
		if client != nil {
			r.client = client
		}
	}
}

// NewHTTPResolver creates a resolver for the given gateway base URL.
func NewHTTPResolver(baseURL string, opts ...HTTPResolverOption) *HTTPResolver {
	r := &HTTPResolver{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve posts the request signals to the gateway and decodes whatever
// attribute groups it answers with. Device attributes missing from the
// response are filled in locally from the user agent.
func (r *HTTPResolver) Resolve(ctx context.Context, req Request) (*Resolved, error) {
	if r.baseURL == "" {
		return nil, ErrNoGateway
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Join(ErrResolveFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/resolve", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrResolveFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.Join(ErrResolveFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrResolveFailed, resp.StatusCode)
	}

	var resolved Resolved
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, errors.Join(ErrResolveFailed, err)
	}
	if resolved.Device == nil && req.UserAgent != "" {
		resolved.Device = deviceFromUserAgent(req.UserAgent)
	}
	return &resolved, nil
}

// LocalResolver derives device attributes from the user agent without any
// network call. Location stays unresolved.
type LocalResolver struct{}

// NewLocalResolver creates a resolver that only parses user agents.
func NewLocalResolver() *LocalResolver { return &LocalResolver{} }

// Resolve parses the user agent; it never fails.
func (r *LocalResolver) Resolve(ctx context.Context, req Request) (*Resolved, error) {
	if req.UserAgent == "" {
		return &Resolved{}, nil
	}
	return &Resolved{Device: deviceFromUserAgent(req.UserAgent)}, nil
}

func deviceFromUserAgent(raw string) *segment.Device {
	ua := useragent.Parse(raw)
	return &segment.Device{
		Type:           ua.DeviceType(),
		OS:             ua.OS(),
		Browser:        ua.Browser(),
		BrowserVersion: ua.BrowserVersion(),
		UserAgent:      raw,
	}
}
