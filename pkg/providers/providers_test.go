package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProvidersFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}
	return file
}

func TestLoadProvidersYAML(t *testing.T) {
	file := writeProvidersFile(t, "providers.yaml", `
providers:
  - id: RapidAPI
    base_url: https://rapid.example/profile
    request_delay_ms: 750
    rate_limit_rps: 2
    config:
      user_agent: enricher-test
`)

	set, err := LoadProviders(file)
	if err != nil {
		t.Fatalf("LoadProviders returned error: %v", err)
	}
	if got := len(set.All()); got != 1 {
		t.Fatalf("expected 1 provider, got %d", got)
	}

	p, ok := set.Get("rapidapi")
	if !ok {
		t.Fatalf("expected provider id rapidapi to be loaded")
	}
	if p.BaseURL != "https://rapid.example/profile" {
		t.Fatalf("unexpected base_url: %s", p.BaseURL)
	}
	if d, set := p.RequestDelay(); !set || d != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v (set=%v)", d, set)
	}
	if p.RateLimitBurst != 1 {
		t.Fatalf("expected burst defaulted to 1, got %d", p.RateLimitBurst)
	}
	if got := Headers(p)["User-Agent"]; got != "enricher-test" {
		t.Fatalf("unexpected user agent header: %q", got)
	}
}

func TestLoadProvidersJSON(t *testing.T) {
	file := writeProvidersFile(t, "providers.json", `{"providers":[{"id":"proxycurl","request_delay_ms":0}]}`)

	set, err := LoadProviders(file)
	if err != nil {
		t.Fatalf("LoadProviders returned error: %v", err)
	}
	p, ok := set.Get("proxycurl")
	if !ok {
		t.Fatalf("expected proxycurl override")
	}
	if _, set := p.RequestDelay(); set {
		t.Fatalf("expected no request delay override")
	}
}

func TestLoadProvidersDuplicateID(t *testing.T) {
	file := writeProvidersFile(t, "providers.yaml", `
providers:
  - id: scrapfly
  - id: Scrapfly
`)
	if _, err := LoadProviders(file); err == nil {
		t.Fatalf("expected duplicate provider error, got nil")
	}
}

func TestLoadProvidersRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"unknown id":    "providers:\n  - id: linkedin-scraper\n",
		"missing id":    "providers:\n  - base_url: https://x.example\n",
		"relative url":  "providers:\n  - id: rapidapi\n    base_url: /profile\n",
		"negative rate": "providers:\n  - id: rapidapi\n    rate_limit_rps: -1\n",
		"empty":         "providers: []\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := writeProvidersFile(t, "providers.yaml", content)
			if _, err := LoadProviders(file); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestNilProviderSet(t *testing.T) {
	var set *ProviderSet
	if _, ok := set.Get("rapidapi"); ok {
		t.Fatalf("nil set should not resolve providers")
	}
	if set.All() != nil {
		t.Fatalf("nil set should list nothing")
	}
}
