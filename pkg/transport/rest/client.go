// Package rest provides the per-entity request functions over HTTP+JSON.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-entityform/pkg/model"
)

// ParentPlaceholder is replaced by the parent id in scoped resource paths,
// e.g. "/units/{parent}/lessons".
const ParentPlaceholder = "{parent}"

// ErrMissingParent is returned when a scoped resource is used unscoped.
var ErrMissingParent = errors.New("rest: resource requires a parent id")

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the request timeout. The transport owns timeouts; the
// layers above never cancel on their own.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger attaches a request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the admin API.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	token   string
	logger  *slog.Logger
}

// New builds a client for baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rest: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	if c.timeout > 0 && c.http.Timeout == 0 {
		clone := *c.http
		clone.Timeout = c.timeout
		c.http = &clone
	}
	return c, nil
}

// Resource returns the request functions for path.
func (c *Client) Resource(path string) *Resource {
	return &Resource{client: c, path: "/" + strings.Trim(path, "/")}
}

// Resource groups the request functions of one collection.
type Resource struct {
	client *Client
	path   string
	parent string
}

// Within scopes the resource under parent.
func (r *Resource) Within(parent string) *Resource {
	clone := *r
	clone.parent = parent
	return &clone
}

// Path returns the unescaped collection path with the parent applied.
func (r *Resource) Path() (string, error) {
	if !strings.Contains(r.path, ParentPlaceholder) {
		return r.path, nil
	}
	if r.parent == "" {
		return "", ErrMissingParent
	}
	return strings.ReplaceAll(r.path, ParentPlaceholder, r.parent), nil
}

type listEnvelope struct {
	Data  []model.Values `json:"data"`
	Total int            `json:"total"`
}

// List fetches the collection with params as the query string.
func (r *Resource) List(ctx context.Context, params map[string]string) ([]model.Values, error) {
	var env listEnvelope
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	if err := r.do(ctx, http.MethodGet, "", query, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []model.Values{}
	}
	return env.Data, nil
}

// Get fetches one entity.
func (r *Resource) Get(ctx context.Context, id string) (model.Values, error) {
	var out model.Values
	err := r.do(ctx, http.MethodGet, id, nil, nil, &out)
	return out, err
}

// Create posts payload and returns the created entity.
func (r *Resource) Create(ctx context.Context, payload model.Values) (model.Values, error) {
	var out model.Values
	err := r.do(ctx, http.MethodPost, "", nil, payload, &out)
	return out, err
}

// Update replaces the entity id with payload.
func (r *Resource) Update(ctx context.Context, id string, payload model.Values) (model.Values, error) {
	var out model.Values
	err := r.do(ctx, http.MethodPut, id, nil, payload, &out)
	return out, err
}

// Delete removes the entity. The acknowledgement body may be empty.
func (r *Resource) Delete(ctx context.Context, id string) (model.Values, error) {
	var out model.Values
	err := r.do(ctx, http.MethodDelete, id, nil, nil, &out)
	return out, err
}

func (r *Resource) do(ctx context.Context, method, id string, query url.Values, body any, out any) error {
	if strings.Contains(r.path, ParentPlaceholder) && r.parent == "" {
		return ErrMissingParent
	}
	rawPath := strings.ReplaceAll(r.path, ParentPlaceholder, url.PathEscape(r.parent))
	if id != "" {
		rawPath += "/" + url.PathEscape(id)
	}
	target := *r.client.base
	target.RawPath = strings.TrimRight(target.EscapedPath(), "/") + rawPath
	unescaped, err := url.PathUnescape(target.RawPath)
	if err != nil {
		return fmt.Errorf("rest: path %q: %w", target.RawPath, err)
	}
	target.Path = unescaped
	target.RawQuery = query.Encode()
	endpoint := target.String()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode %s %s: %w", method, endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("rest: build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.client.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.client.token)
	}

	started := time.Now()
	resp, err := r.client.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: endpoint, Err: err}
	}
	r.client.logger.Debug("rest request", "method", method, "url", endpoint, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, URL: endpoint, Status: resp.StatusCode, Body: failureBody(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rest: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func failureBody(raw []byte) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(trimmed, &body); err == nil {
		return body
	}
	return map[string]any{"message": string(trimmed)}
}
