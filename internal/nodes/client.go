// Package nodes talks to the persistence service that owns profile nodes.
package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// StatusError is returned for persistence responses with status >= 400.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("persistence API %s %s failed with status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the persistence service.
func IsNotFound(err error) bool {
	var se *StatusError
	return eris.As(err, &se) && se.Status == http.StatusNotFound
}

// APIClient is a thin JSON client for the persistence REST API.
type APIClient struct {
	baseURL string
	apiKey  string
	http    httpclient.Client
	log     logger.Logger
}

// NewAPIClient builds a client rooted at baseURL and authenticated with apiKey.
func NewAPIClient(baseURL, apiKey string, client httpclient.Client, log logger.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    client,
		log:     logger.Ensure(log),
	}
}

// URL resolves a route, prefixing "api/" unless already present.
func (c *APIClient) URL(route string) string {
	route = strings.TrimLeft(route, "/")
	if !strings.HasPrefix(route, "api/") {
		route = "api/" + route
	}
	return c.baseURL + "/" + route
}

func (c *APIClient) headers() map[string]string {
	return map[string]string{
		"X-API-Key":    c.apiKey,
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// Get issues a GET with optional query parameters and decodes the JSON object response.
func (c *APIClient) Get(ctx context.Context, route string, query map[string]string) (map[string]any, error) {
	return c.do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.URL(route),
		Headers: c.headers(),
		Query:   query,
	})
}

// Request issues method with a JSON payload. A nil payload sends an empty object.
func (c *APIClient) Request(ctx context.Context, method, route string, payload any) (map[string]any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return c.do(ctx, httpclient.Request{
		Method:  method,
		URL:     c.URL(route),
		Headers: c.headers(),
		Body:    payload,
	})
}

func (c *APIClient) do(ctx context.Context, req httpclient.Request) (map[string]any, error) {
	c.log.DebugObj("persistence request", "persistence_request", map[string]any{
		"method": req.Method,
		"url":    req.URL,
	})

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "persistence API %s %s", req.Method, req.URL)
	}

	body := resp.Body()
	if resp.StatusCode() >= http.StatusBadRequest {
		serr := &StatusError{
			Method: req.Method,
			URL:    req.URL,
			Status: resp.StatusCode(),
			Body:   snippet(body),
		}
		c.log.ErrorObj("persistence request failed", "persistence_error", map[string]any{
			"method": req.Method,
			"url":    req.URL,
			"status": serr.Status,
			"body":   serr.Body,
		})
		return nil, serr
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrapf(err, "decode persistence response from %s", req.URL)
	}
	return out, nil
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
