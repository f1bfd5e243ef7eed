package providers

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// Payload is the raw, provider-shaped profile document.
type Payload = map[string]any

// Adapter fetches raw profile data from one external provider.
// Fetch returns (nil, nil) when the provider has no data for the identifier,
// a *FetchError for transport, status or decode failures, and the payload
// untouched when the provider embeds a semantic failure in a 200 body.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, identifier string) (Payload, error)
	TestConnection(ctx context.Context) bool
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client

// Sleeper blocks for d. Tests inject a recorder.
type Sleeper func(d time.Duration)
