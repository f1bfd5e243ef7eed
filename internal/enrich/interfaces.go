// Package enrich drives a single node through fetch, quality gating and persistence.
package enrich

import (
	"context"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

// NodeRepository is the persistence surface the processor mutates nodes through.
type NodeRepository interface {
	Fetch(ctx context.Context, nodeID string) (*domain.Node, error)
	TouchLastAttempted(ctx context.Context, nodeID string) (bool, error)
	UpdateNode(ctx context.Context, nodeID string, data map[string]any) (bool, error)
	UpdateDuplicates(ctx context.Context, username, excludeNodeID string, data map[string]any) (int, error)
	Delete(ctx context.Context, nodeID string) (bool, error)
	MarkError(ctx context.Context, nodeID, message string) (bool, error)
}

// Fetcher walks the provider fallback chain.
type Fetcher interface {
	FetchWithFallback(ctx context.Context, identifier string) providers.FallbackResult
}

// Transformer maps a raw payload into a stamped canonical record.
type Transformer interface {
	Transform(raw providers.Payload, provider string) (domain.Profile, error)
}

// ProviderProber reports provider availability for status views.
type ProviderProber interface {
	Names() []string
	Available() []string
	TestAll(ctx context.Context) map[string]bool
}
