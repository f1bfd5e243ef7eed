package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// Repository exposes the node operations of the persistence service.
type Repository struct {
	api *APIClient
	now func() time.Time
}

// NewRepository wraps an APIClient.
func NewRepository(api *APIClient) *Repository {
	return &Repository{api: api, now: time.Now}
}

// Fetch returns the node, or nil when the service reports it missing.
func (r *Repository) Fetch(ctx context.Context, nodeID string) (*domain.Node, error) {
	resp, err := r.api.Get(ctx, "nodes/"+nodeID, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "fetch node %s", nodeID)
	}

	var raw any = resp
	if data, ok := resp["data"]; ok {
		raw = data
	}
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, nil
	}

	var node domain.Node
	if err := decodeInto(obj, &node); err != nil {
		return nil, eris.Wrapf(err, "decode node %s", nodeID)
	}
	node.ID = nodeID
	return &node, nil
}

// TouchLastAttempted stamps lastAttemptedAt with the current UTC time.
func (r *Repository) TouchLastAttempted(ctx context.Context, nodeID string) (bool, error) {
	resp, err := r.api.Request(ctx, http.MethodPatch, "nodes/"+nodeID, map[string]any{
		"nodeId":          nodeID,
		"lastAttemptedAt": r.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return false, eris.Wrapf(err, "touch node %s", nodeID)
	}
	return successOf(resp), nil
}

// UpdateNode writes data onto the node.
func (r *Repository) UpdateNode(ctx context.Context, nodeID string, data map[string]any) (bool, error) {
	resp, err := r.api.Request(ctx, http.MethodPatch, "nodes/"+nodeID, map[string]any{
		"nodeId": nodeID,
		"data":   data,
	})
	if err != nil {
		return false, eris.Wrapf(err, "update node %s", nodeID)
	}
	return successOf(resp), nil
}

// UpdateDuplicates copies data onto every other node sharing username and
// returns how many were modified.
func (r *Repository) UpdateDuplicates(ctx context.Context, username, excludeNodeID string, data map[string]any) (int, error) {
	resp, err := r.api.Request(ctx, http.MethodPost, "nodes/update-duplicates", map[string]any{
		"linkedinUsername": username,
		"excludeNodeId":    excludeNodeID,
		"data":             data,
	})
	if err != nil {
		return 0, eris.Wrapf(err, "update duplicates of %s", username)
	}
	return intOf(resp["modifiedCount"]), nil
}

// Delete removes the node. A node the service no longer knows is reported as
// (false, nil) so callers can treat it as already gone.
func (r *Repository) Delete(ctx context.Context, nodeID string) (bool, error) {
	resp, err := r.api.Request(ctx, http.MethodDelete, "nodes/"+nodeID, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "delete node %s", nodeID)
	}
	return successOf(resp), nil
}

// MarkError records a terminal failure message on the node.
func (r *Repository) MarkError(ctx context.Context, nodeID, message string) (bool, error) {
	resp, err := r.api.Request(ctx, http.MethodPost, "nodes/mark-error", map[string]any{
		"nodeId":       nodeID,
		"errorMessage": message,
	})
	if err != nil {
		return false, eris.Wrapf(err, "mark error on node %s", nodeID)
	}
	return successOf(resp), nil
}

// ScrapeStats returns the service's scraping statistics.
func (r *Repository) ScrapeStats(ctx context.Context) (map[string]any, error) {
	resp, err := r.api.Get(ctx, "nodes/scrape-stats", nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape stats")
	}
	if stats, ok := resp["stats"].(map[string]any); ok {
		return stats, nil
	}
	return resp, nil
}

// RecentAttempts lists nodes attempted within the last hours.
func (r *Repository) RecentAttempts(ctx context.Context, hours, limit int) ([]domain.Node, error) {
	if hours <= 0 {
		hours = 1
	}
	if limit <= 0 {
		limit = 100
	}
	resp, err := r.api.Get(ctx, "nodes/recent-attempts", map[string]string{
		"hours": strconv.Itoa(hours),
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, eris.Wrap(err, "recent attempts")
	}
	return nodesOf(resp)
}

// ScrapeCandidates lists nodes that still need enrichment.
func (r *Repository) ScrapeCandidates(ctx context.Context, limit int) ([]domain.Node, error) {
	if limit <= 0 {
		limit = 5
	}
	resp, err := r.api.Get(ctx, "nodes/scrape-candidates", map[string]string{
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, eris.Wrap(err, "scrape candidates")
	}
	return nodesOf(resp)
}

// Clients bundles the persistence client and repository built once per process.
type Clients struct {
	API   *APIClient
	Nodes *Repository
}

// NewClients builds the persistence clients from configuration.
func NewClients(cfg *config.Config, log logger.Logger) *Clients {
	httpc := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:      cfg.APITimeout,
		RetryCount:   cfg.APIMaxRetries,
		RetryWait:    time.Second,
		RetryMaxWait: 10 * time.Second,
	})
	api := NewAPIClient(cfg.BaseAPIURL, cfg.APIKey, httpc, log)
	return &Clients{API: api, Nodes: NewRepository(api)}
}

func successOf(resp map[string]any) bool {
	v, ok := resp["success"]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return !ok || b
}

func intOf(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

type listedNode struct {
	domain.Node
	ID      string `json:"_id"`
	NodeID  string `json:"nodeId"`
	PlainID string `json:"id"`
}

func nodesOf(resp map[string]any) ([]domain.Node, error) {
	items, _ := resp["nodes"].([]any)
	out := make([]domain.Node, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var ln listedNode
		if err := decodeInto(obj, &ln); err != nil {
			return nil, eris.Wrap(err, "decode node list")
		}
		n := ln.Node
		n.ID = firstNonEmpty(ln.ID, ln.NodeID, ln.PlainID)
		out = append(out, n)
	}
	return out, nil
}

func decodeInto(src map[string]any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
