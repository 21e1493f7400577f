// Package registry is a small client for the npm registry search API.
//
// The web page used to query registry.npmjs.org directly from the browser; the
// server now proxies the call so the page talks to a single origin and the
// session cookie guards it like every other API route.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aryan2621/Npmmer/internal/apperror"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// DefaultTimeout bounds one search request end to end.
const DefaultTimeout = 10 * time.Second

// Search size limits, matching what the registry itself accepts.
const (
	DefaultSize = 20
	MaxSize     = 250
	MaxTextLen  = 256
)

// maxBodyBytes caps how much of a registry response we are willing to read.
const maxBodyBytes = 4 << 20

// SearchResult is the registry's search response, reduced to the fields the
// add page shows.
type SearchResult struct {
	Objects []SearchObject `json:"objects"`
	Total   int            `json:"total"`
	Time    string         `json:"time"`
}

// SearchObject is one hit.
type SearchObject struct {
	Package     Package   `json:"package"`
	Downloads   Downloads `json:"downloads"`
	Dependents  int       `json:"dependents"`
	Updated     string    `json:"updated"`
	SearchScore float64   `json:"searchScore"`
}

// Package is the registry metadata for a hit. Name, Version, Description and
// Date are what the page copies into a saved favorite.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	Date        string   `json:"date"`
	License     string   `json:"license,omitempty"`
	Publisher   *Person  `json:"publisher,omitempty"`
	Links       Links    `json:"links"`
}

// Downloads counts recent installs.
type Downloads struct {
	Monthly int `json:"monthly"`
	Weekly  int `json:"weekly"`
}

// Person is a publisher or maintainer.
type Person struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Links are the package's external URLs.
type Links struct {
	NPM        string `json:"npm,omitempty"`
	Homepage   string `json:"homepage,omitempty"`
	Repository string `json:"repository,omitempty"`
	Bugs       string `json:"bugs,omitempty"`
}

// Client queries the registry search endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for baseURL (DefaultURL when empty).
// timeout <= 0 selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("registry: invalid base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Search runs a text search. size <= 0 selects DefaultSize; larger values are
// clamped to MaxSize.
func (c *Client) Search(ctx context.Context, text string, size int) (*SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "search text is required")
	}
	if len(text) > MaxTextLen {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("search text must be %d characters or less", MaxTextLen))
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	q := url.Values{}
	q.Set("text", text)
	q.Set("size", strconv.Itoa(size))
	endpoint := c.baseURL + "/-/v1/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("registry search failed",
			slog.String("text", text),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("package registry is unreachable")
	}
	defer resp.Body.Close()

	c.logger.Debug("registry search",
		slog.String("text", text),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperror.Upstream(fmt.Sprintf("package registry returned %d", resp.StatusCode))
	}

	var result SearchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&result); err != nil {
		return nil, apperror.Upstream("package registry returned an unreadable response")
	}
	if result.Objects == nil {
		result.Objects = []SearchObject{}
	}

	return &result, nil
}
