package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

var (
	ErrEmptyBaseURL = errors.New("api base url is empty")
	ErrInvalidBase  = errors.New("api base url is invalid")
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	AppVersion string
	HTTPClient *http.Client
}

// Meta is the non-payload part of a response envelope.
type Meta struct {
	HTTPStatus int
	Status     int
	Message    string
	Timestamp  string
}

// Page is a paginated list payload.
type Page[T any] struct {
	Results  []T    `json:"results"`
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Form is a multipart/form-data body.
type Form struct {
	Fields map[string]string
	Files  []File
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	base       string
	appVersion string
	http       *http.Client
}

// New validates cfg and returns a Client. A nil HTTPClient selects a client
// with a 30 second timeout over http.DefaultTransport.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBase, cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base:       base,
		appVersion: cfg.AppVersion,
		http:       hc,
	}, nil
}

// BaseURL returns the normalized base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// HTTP returns the underlying *http.Client.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	return c.base + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) (Meta, error) {
	return c.Do(ctx, http.MethodGet, endpoint, query, nil, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any) (Meta, error) {
	return c.Do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, body, out any) (Meta, error) {
	return c.Do(ctx, http.MethodPut, endpoint, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) (Meta, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, nil, body, out)
}

// Delete issues a DELETE, optionally with a JSON body.
func (c *Client) Delete(ctx context.Context, endpoint string, body, out any) (Meta, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, body, out)
}

// Do issues a JSON request. body is marshaled when non-nil; out receives the
// envelope data when non-nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body, out any) (Meta, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Meta{}, fmt.Errorf("encode %s %s: %w", method, endpoint, err)
		}
		payload = b
	}

	req, err := c.newRequest(ctx, method, endpoint, query, payload)
	if err != nil {
		return Meta{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

// Upload issues a multipart/form-data request. Text fields and file parts
// are written in a stable order.
func (c *Client) Upload(ctx context.Context, method, endpoint string, form Form, out any) (Meta, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, form.Fields[k]); err != nil {
			return Meta{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for _, f := range form.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return Meta{}, fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return Meta{}, fmt.Errorf("write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return Meta{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, endpoint, nil, buf.Bytes())
	if err != nil {
		return Meta{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, payload []byte) (*http.Request, error) {
	target := c.URL(endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appVersion != "" {
		req.Header.Set("X-App-Version", c.appVersion)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (Meta, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Meta{}, FromTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Meta{HTTPStatus: resp.StatusCode}, FromTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := Classify(resp.StatusCode, body)
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
		if apiErr.RequestID == "" {
			apiErr.RequestID = req.Header.Get("X-Request-Id")
		}
		return Meta{HTTPStatus: resp.StatusCode}, apiErr
	}

	meta, err := decodeEnvelope(body, out)
	meta.HTTPStatus = resp.StatusCode
	if err != nil {
		return meta, fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return meta, nil
}

// decodeEnvelope unwraps {data, message, status, timestamp}. Bodies without a
// data member are decoded whole into out.
func decodeEnvelope(body []byte, out any) (Meta, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Meta{}, nil
	}

	var members map[string]json.RawMessage
	if body[0] == '{' {
		if err := json.Unmarshal(body, &members); err != nil {
			return Meta{}, err
		}
	}

	data, enveloped := members["data"]
	if !enveloped {
		if out == nil {
			return Meta{}, nil
		}
		return Meta{}, json.Unmarshal(body, out)
	}

	var meta Meta
	if raw, ok := members["message"]; ok {
		_ = json.Unmarshal(raw, &meta.Message)
	}
	if raw, ok := members["status"]; ok {
		_ = json.Unmarshal(raw, &meta.Status)
	}
	if raw, ok := members["timestamp"]; ok {
		_ = json.Unmarshal(raw, &meta.Timestamp)
	}

	if out == nil || len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return meta, nil
	}
	return meta, json.Unmarshal(data, out)
}
