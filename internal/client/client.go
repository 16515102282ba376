package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes caps both the raw and the decoded size of a response body.
const maxResponseBytes = 32 * 1024 * 1024

// SolrClient defines the interface for the administrative surface of a Solr server.
type SolrClient interface {
	GetImportStatus(ctx context.Context, core string) (*ImportStatus, error)
	GetIndexStats(ctx context.Context, core string) (*IndexStats, error)
	GetDocumentCount(ctx context.Context, core string) (int64, error)
	Execute(ctx context.Context, cmd Command) (*Response, error)
	ReadText(ctx context.Context, cmd Command) (string, error)
	Ping(ctx context.Context) error
	BaseURL() string
}

// Command is a single administrative request against a Solr path.
// Timeout overrides the client's default request timeout when positive.
type Command struct {
	Path    string
	Params  url.Values
	Timeout time.Duration
}

// String renders the command the way it appears in the request URL.
func (c Command) String() string {
	if len(c.Params) == 0 {
		return c.Path
	}
	return c.Path + "?" + c.Params.Encode()
}

// ClientConfig holds configuration for DefaultClient.
type ClientConfig struct {
	BaseURL            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	UserAgent          string
}

// DefaultClient implements SolrClient using the standard net/http package.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// Returns an error if BaseURL is empty.
func NewDefaultClient(cfg ClientConfig) (*DefaultClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "solrctl"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}
	// Compression is negotiated explicitly so deflate bodies can be decoded too.
	transport.DisableCompression = true

	return &DefaultClient{
		http:   &http.Client{Transport: transport},
		config: cfg,
	}, nil
}

// BaseURL returns the configured base URL of the Solr server.
func (c *DefaultClient) BaseURL() string {
	return c.config.BaseURL
}

// Execute issues cmd and parses the XML response body.
func (c *DefaultClient) Execute(ctx context.Context, cmd Command) (*Response, error) {
	body, err := c.doGet(ctx, cmd)
	if err != nil {
		return nil, err
	}
	resp, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", cmd.Path, err)
	}
	return resp, nil
}

// ReadText issues cmd and returns the raw response body as text.
func (c *DefaultClient) ReadText(ctx context.Context, cmd Command) (string, error) {
	body, err := c.doGet(ctx, cmd)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// doGet performs a GET request for cmd (relative to BaseURL).
// Returns the decoded response body bytes or an error on non-2xx status.
func (c *DefaultClient) doGet(ctx context.Context, cmd Command) ([]byte, error) {
	if !strings.HasPrefix(strings.ToLower(cmd.Path), "/solr") {
		return nil, fmt.Errorf("path %q must begin with /solr", cmd.Path)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = c.config.RequestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.TrimRight(c.config.BaseURL, "/") + cmd.String()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/xml, text/plain")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

// decodeBody undoes gzip or deflate content encoding, reading at most limit
// decoded bytes. Deflate bodies may be zlib-wrapped or a raw stream.
func decodeBody(encoding string, raw []byte, limit int64) ([]byte, error) {
	encoding = strings.ToLower(encoding)
	switch {
	case strings.Contains(encoding, "gzip"):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, limit))
	case strings.Contains(encoding, "deflate"):
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(io.LimitReader(zr, limit))
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(io.LimitReader(fr, limit))
	default:
		return raw, nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
