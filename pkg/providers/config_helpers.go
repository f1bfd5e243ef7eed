package providers

import "strings"

// ConfigString returns the trimmed string value for key from provider.Config or a fallback.
func ConfigString(cfg Provider, key, fallback string) string {
	if cfg.Config != nil {
		if raw, ok := cfg.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCountryKey        = "country"

	defaultUserAgent = "LinkedInNodeProcessor/1.0"
	defaultAccept    = "application/json"
)

// Headers builds the common request headers from a provider config, falling
// back to the enricher's defaults for User-Agent and Accept.
func Headers(cfg Provider) map[string]string {
	headers := map[string]string{
		"User-Agent": ConfigString(cfg, ConfigUserAgentKey, defaultUserAgent),
		"Accept":     ConfigString(cfg, ConfigAcceptKey, defaultAccept),
	}
	if v := ConfigString(cfg, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	return headers
}

func mergeHeaders(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
