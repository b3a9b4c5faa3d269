// Package api is the remote access layer of the backpack client: bearer-token
// authenticated JSON and multipart calls against the REST API, a single
// refresh-and-retry on an expired token, and normalisation of failures into
// *Error or ErrUnavailable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/backpack/internal/client/metrics"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

// TokenStore persists the bearer token between requests.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
}

// Options configures an HTTPClient.
type Options struct {
	ServerRoot string // e.g. "https://backpack.example.org/"
	HTTPClient *http.Client
	Tokens     TokenStore
	Limiter    *rate.Limiter
	Logger     logging.Logger
	Metrics    *metrics.Metrics
}

// HTTPClient talks to the REST API rooted at ServerRoot + "api/".
type HTTPClient struct {
	serverRoot string
	apiRoot    string
	http       *http.Client
	tokens     TokenStore
	limiter    *rate.Limiter
	log        logging.Logger
	metrics    *metrics.Metrics
}

// New builds an HTTPClient. A trailing slash is added to ServerRoot when missing.
func New(opts Options) *HTTPClient {
	root := opts.ServerRoot
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPClient{
		serverRoot: root,
		apiRoot:    root + "api/",
		http:       hc,
		tokens:     opts.Tokens,
		limiter:    opts.Limiter,
		log:        logging.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}
}

type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	auth        bool
}

// Get issues an authenticated GET and decodes the JSON response into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, request{method: http.MethodGet, url: c.resolve(path), auth: true}, out)
}

// PostJSON issues an authenticated POST with a JSON body.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, request{method: http.MethodPost, url: c.resolve(path), body: body, contentType: "application/json", auth: true}, out)
}

// PostForm issues an authenticated multipart POST.
func (c *HTTPClient) PostForm(ctx context.Context, path string, form Form, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	return c.do(ctx, request{method: http.MethodPost, url: c.resolve(path), body: body, contentType: contentType, auth: true}, out)
}

// Patch issues an authenticated PATCH with a JSON body.
func (c *HTTPClient) Patch(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, request{method: http.MethodPatch, url: c.resolve(path), body: body, contentType: "application/json", auth: true}, out)
}

// Delete issues an authenticated DELETE.
func (c *HTTPClient) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, request{method: http.MethodDelete, url: c.resolve(path), auth: true}, out)
}

// Ping reports whether the server answers at all. Any HTTP status counts as
// reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, _, err := c.send(ctx, request{method: http.MethodGet, url: c.apiRoot + "me/account/"}, "")
	return err
}

func (c *HTTPClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.apiRoot + strings.TrimPrefix(path, "/")
}

func (c *HTTPClient) loadToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.LoadToken(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (c *HTTPClient) do(ctx context.Context, req request, out any) error {
	token := ""
	if req.auth {
		var err error
		if token, err = c.loadToken(ctx); err != nil {
			return err
		}
	}

	status, body, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if isAuthFailure(status) && req.auth && token != "" {
		if rerr := c.refresh(ctx, token); rerr != nil {
			c.log.Warn(ctx, "token refresh failed", "error", rerr)
			return newError(status, body)
		}

		if token, err = c.loadToken(ctx); err != nil {
			return err
		}
		if status, body, err = c.send(ctx, req, token); err != nil {
			return err
		}
	}

	return decode(status, body, out)
}

// isAuthFailure reports the statuses the server uses for a stale token.
func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// refresh re-arms token through auth/refresh/<token>/. The server answers
// 403 for unknown tokens. A replacement token in the response is stored.
func (c *HTTPClient) refresh(ctx context.Context, token string) error {
	req := request{method: http.MethodGet, url: c.serverRoot + "auth/refresh/" + url.PathEscape(token) + "/"}

	status, body, err := c.send(ctx, req, "")
	if err != nil {
		return err
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decode(status, body, &out); err != nil {
		return err
	}

	if out.AccessToken != "" && c.tokens != nil {
		if err := c.tokens.SaveToken(ctx, out.AccessToken); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, req request, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	endpoint := c.endpointLabel(req.url)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.method, endpoint, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(req.method, endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	c.log.Debug(ctx, "api request", "method", req.method, "endpoint", endpoint, "status", resp.StatusCode)
	return resp.StatusCode, data, nil
}

// decode turns a response into out or an *Error. An empty 2xx body decodes
// as the empty object.
func decode(status int, body []byte, out any) error {
	if status < 200 || status >= 300 {
		return newError(status, body)
	}
	if out == nil {
		return nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
		var typeErr *json.UnmarshalTypeError
		if err := json.Unmarshal(body, out); err != nil && !errors.As(err, &typeErr) {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// endpointLabel reduces a URL to a low-cardinality metrics label.
func (c *HTTPClient) endpointLabel(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, c.apiRoot)
	path = strings.TrimPrefix(path, c.serverRoot)

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if isIDSegment(s) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isIDSegment(s string) bool {
	if s == "" {
		return false
	}
	if len(s) >= 20 {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
