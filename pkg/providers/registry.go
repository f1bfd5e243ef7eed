package providers

import (
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// Registry holds adapters keyed by lower-cased provider name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds a registry from adapters in registration order.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		reg.Register(a)
	}
	return reg
}

// Register adds or replaces the adapter under its name.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	key := normalizeName(a.Name())
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[key]; !exists {
		r.order = append(r.order, key)
	}
	r.adapters[key] = a
}

// Get resolves the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[normalizeName(name)]
	return a, ok
}

// Names lists registered providers in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isKnownName(name string) bool {
	for _, known := range config.KnownProviders {
		if known == name {
			return true
		}
	}
	return false
}

// DefaultHTTPClient returns the provider transport. Transport retries are
// disabled because the retry controller owns provider retries.
func DefaultHTTPClient(timeout time.Duration) HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return httpclient.NewRestyClient(timeout)
}

// BuildRegistry registers an adapter for every provider whose credentials are
// configured, applying overrides from set and rate limits from cfg.
func BuildRegistry(cfg *config.Config, set *ProviderSet, client HTTPClient, log logger.Logger) *Registry {
	log = logger.Ensure(log)
	if client == nil {
		client = DefaultHTTPClient(cfg.RequestTimeout)
	}

	reg := NewRegistry()
	for _, name := range cfg.ConfiguredProviders() {
		override, _ := set.Get(name)

		var a Adapter
		switch name {
		case config.ProviderRapidAPI:
			a = NewRapidAPIAdapter(RapidAPIOptions{
				APIKey:  cfg.RapidAPIKey,
				Host:    cfg.RapidAPIHost,
				Path:    cfg.RapidAPIURL,
				BaseURL: override.BaseURL,
				Headers: Headers(override),
			}, client, log)
		case config.ProviderScrapfly:
			a = NewScrapflyAdapter(ScrapflyOptions{
				APIKey:  cfg.ScrapflyAPIKey,
				BaseURL: firstNonEmpty(override.BaseURL, cfg.ScrapflyBaseURL),
				Country: ConfigString(override, ConfigCountryKey, "us"),
				Headers: Headers(override),
			}, client, log)
		case config.ProviderProxycurl:
			a = NewProxycurlAdapter(ProxycurlOptions{
				APIKey:  cfg.ProxycurlAPIKey,
				BaseURL: firstNonEmpty(override.BaseURL, cfg.ProxycurlBaseURL),
				Headers: Headers(override),
			}, client, log)
		default:
			continue
		}

		rps, burst := cfg.ProviderRateLimitRPS, 1
		if override.RateLimitRPS > 0 {
			rps, burst = override.RateLimitRPS, override.RateLimitBurst
		}
		reg.Register(WithRateLimit(a, rps, burst))
		log.InfoObj("provider registered", "provider", map[string]any{
			"name":           name,
			"rate_limit_rps": rps,
		})
	}

	if reg.Len() == 0 {
		log.WarnObj("no providers registered", "providers", cfg.FallbackChain)
	}
	return reg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
