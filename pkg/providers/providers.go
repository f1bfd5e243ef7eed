package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider holds per-provider overrides loaded from the providers file.
// Credentials never live here; they come from the environment.
type Provider struct {
	ID             string         `json:"id" yaml:"id"`
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	RateLimitRPS   float64        `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int            `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// ProviderSet indexes overrides by provider id. A nil set has no overrides.
type ProviderSet struct {
	list []Provider
	idx  map[string]Provider
}

// NewProviderSet indexes already validated providers.
func NewProviderSet(list ...Provider) *ProviderSet {
	set := &ProviderSet{idx: make(map[string]Provider, len(list))}
	for _, p := range list {
		set.list = append(set.list, p)
		set.idx[p.ID] = p
	}
	return set
}

// All returns a copy of the loaded overrides.
func (s *ProviderSet) All() []Provider {
	if s == nil || len(s.list) == 0 {
		return nil
	}
	out := make([]Provider, len(s.list))
	copy(out, s.list)
	return out
}

// Get returns the override entry for id, if present.
func (s *ProviderSet) Get(id string) (Provider, bool) {
	if s == nil {
		return Provider{}, false
	}
	p, ok := s.idx[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// LoadProviders reads provider overrides from a YAML or JSON file.
func LoadProviders(path string) (*ProviderSet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("providers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if len(reg.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	seen := make(map[string]struct{}, len(reg.Providers))
	for i := range reg.Providers {
		p := sanitizeProvider(reg.Providers[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, exists := seen[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		reg.Providers[i] = p
	}

	return NewProviderSet(reg.Providers...), nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s providers: %w", name, err)
	}
	return reg, nil
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	p.BaseURL = strings.TrimSpace(p.BaseURL)

	if p.Config == nil {
		p.Config = map[string]any{}
	}
	if p.RateLimitRPS > 0 && p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 1
	}
	return p
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if !isKnownName(p.ID) {
		return fmt.Errorf("unknown provider id %q", p.ID)
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_url must be an absolute URL for provider %q", p.ID)
		}
	}
	if p.RequestDelayMs < 0 {
		return fmt.Errorf("request_delay_ms must be non-negative for provider %q", p.ID)
	}
	if p.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be non-negative for provider %q", p.ID)
	}
	return nil
}

// RequestDelay returns the configured pause after this provider, and whether one was set.
func (p Provider) RequestDelay() (time.Duration, bool) {
	if p.RequestDelayMs <= 0 {
		return 0, false
	}
	return time.Duration(p.RequestDelayMs) * time.Millisecond, true
}
