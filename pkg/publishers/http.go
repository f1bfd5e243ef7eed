package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, t Target, log Logger) (Publisher, error) {
	if t.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", t.ID)
	}

	method := t.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	timeout := t.HTTP.TimeoutSeconds
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds
	}

	return &httpPublisher{
		id:      t.ID,
		method:  method,
		url:     t.HTTP.URL,
		headers: t.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(timeout) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish posts the event as JSON. The event id doubles as an idempotency key
// so receivers can drop redelivered outcomes.
func (h *httpPublisher) Publish(ctx context.Context, evt OutcomeEvent) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", evt.ID).
		SetHeader("X-Outcome-Status", evt.Status()).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver outcome to %s: %w", h.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("outcome webhook returned %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	h.log.DebugObj("outcome delivered", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"node_id":      evt.NodeID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

// eventAttributes are the routing attributes attached to queue and topic messages.
func eventAttributes(evt OutcomeEvent) map[string]string {
	attrs := map[string]string{
		"node_id": evt.NodeID,
		"status":  evt.Status(),
		"source":  evt.Source,
	}
	if evt.UserID != "" {
		attrs["user_id"] = evt.UserID
	}
	return attrs
}
