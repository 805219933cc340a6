package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

const (
	DefaultBaseURL     = "http://localhost:5000/api/v1"
	DefaultRefreshPath = "/refresh-token"
	uploadsPath        = "/api/v1/uploads/"
)

// Options configures a [Client].
type Options struct {
	// BaseURL is prefixed to every request path.
	BaseURL string
	// AssetBaseURL is the host that serves uploaded files. See [Client.ResolveAssetURL].
	AssetBaseURL string
	RefreshPath  string
	HTTPClient   *http.Client
	Store        *session.Store
	Logger       *log.Logger
	// RateLimit caps outbound requests per second. Zero disables throttling.
	RateLimit float64
}

// Client executes requests against one base path on behalf of the stored session.
type Client struct {
	baseURL      string
	assetBaseURL string
	refreshPath  string
	httpClient   *http.Client
	store        *session.Store
	logger       *log.Logger
	limiter      *rate.Limiter
}

// NewClient creates a [Client]. Without a store the client runs against an empty in-memory session.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RefreshPath == "" {
		opts.RefreshPath = DefaultRefreshPath
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Store == nil {
		opts.Store = session.NewStore(session.NewMemoryStorage(), opts.Logger)
	}

	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		assetBaseURL: strings.TrimRight(opts.AssetBaseURL, "/"),
		refreshPath:  opts.RefreshPath,
		httpClient:   opts.HTTPClient,
		store:        opts.Store,
		logger:       opts.Logger,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// Store returns the session the client authenticates with.
func (c *Client) Store() *session.Store { return c.store }

// BaseURL returns the base every request path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// File is one file part of a [Multipart] body.
type File struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a form body with plain fields and file parts.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// Request describes one call. Body and Multipart are mutually exclusive; Multipart wins.
type Request struct {
	Method    string
	Path      string
	Query     map[string]any
	Body      any
	Multipart *Multipart
	Headers   http.Header
}

// Response is a successful (2xx) response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode parses the JSON body of resp into T. An empty body yields the zero value.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	return out, nil
}

// Do executes r.
//
// The Authorization header is always sent, with an empty token when none is stored.
// A 401 clears the session before Do returns.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	req, err := c.build(ctx, r)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetworkFailure, Message: err.Error(), Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", r.Path, "error", err)
		return nil, &Error{Kind: KindNetworkFailure, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Message: "failed to read response", StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("request", "method", req.Method, "path", r.Path, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		clearErr := c.store.ClearAll()
		if clearErr != nil {
			c.logger.Error("failed to clear session after 401", "error", clearErr)
		} else {
			c.logger.Warn("session expired", "path", r.Path)
		}
		return nil, &Error{Kind: KindSessionExpired, Message: MsgSessionExpired, StatusCode: resp.StatusCode, Err: clearErr}
	default:
		return nil, requestFailed(resp.StatusCode, body)
	}
}

func (c *Client) Get(ctx context.Context, path string, query map[string]any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) PostMultipart(ctx context.Context, path string, form *Multipart) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Multipart: form})
}

// RefreshToken exchanges the stored refresh token for a new access token.
//
// The stored refresh token is replaced only when the response carries a new one.
func (c *Client) RefreshToken(ctx context.Context) (*models.TokenPair, error) {
	refresh := c.store.RefreshToken()
	if refresh == "" {
		return nil, shared.ErrNoRefreshToken
	}

	resp, err := c.Post(ctx, c.refreshPath, map[string]string{"token": refresh})
	if err != nil {
		return nil, err
	}

	pair, err := Decode[models.TokenPair](resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", shared.ErrRefreshFailed)
	}

	if err := c.store.SetAccessToken(pair.AccessToken); err != nil {
		return nil, err
	}
	if pair.RefreshToken != "" {
		if err := c.store.SetRefreshToken(pair.RefreshToken); err != nil {
			return nil, err
		}
	}

	c.logger.Info("access token refreshed")
	return &pair, nil
}

// ResolveAssetURL turns a path relative to the uploads directory into an absolute URL.
// Absolute URLs and empty paths are returned unchanged.
func (c *Client) ResolveAssetURL(relative string) (string, error) {
	if relative == "" {
		return "", nil
	}
	if u, err := url.Parse(relative); err == nil && u.IsAbs() {
		return relative, nil
	}
	if c.assetBaseURL == "" {
		return "", fmt.Errorf("%w: asset base URL", shared.ErrMissingConfig)
	}
	return c.assetBaseURL + uploadsPath + strings.TrimLeft(relative, "/"), nil
}

func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + encodeQuery(r.Query).Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.Multipart != nil:
		buf, ct, err := encodeMultipart(r.Multipart)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode body: %v", shared.ErrInvalidInput, err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	tok, _ := c.store.Token()
	tok.SetAuthHeader(req)
	return req, nil
}

func encodeQuery(q map[string]any) url.Values {
	values := url.Values{}
	for k, v := range q {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case bool:
			s = strconv.FormatBool(t)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case float32:
			s = strconv.FormatFloat(float64(t), 'f', -1, 32)
		default:
			s = fmt.Sprint(t)
		}
		values.Set(k, s)
	}
	return values
}

func encodeMultipart(form *Multipart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range form.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	for _, f := range form.Files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("failed to copy %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
