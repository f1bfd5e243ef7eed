package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// ProxycurlOptions configures the Proxycurl person-profile adapter.
type ProxycurlOptions struct {
	APIKey  string
	BaseURL string
	Headers map[string]string
}

type proxycurlAdapter struct {
	opts   ProxycurlOptions
	client HTTPClient
	log    logger.Logger
}

// NewProxycurlAdapter builds the Proxycurl adapter.
func NewProxycurlAdapter(opts ProxycurlOptions, client HTTPClient, log logger.Logger) Adapter {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	log = logger.Ensure(log)
	if strings.TrimSpace(opts.APIKey) == "" {
		log.WarnObj("Proxycurl API key not configured; adapter will not be functional", "provider", config.ProviderProxycurl)
	}
	return &proxycurlAdapter{opts: opts, client: client, log: log}
}

func (a *proxycurlAdapter) Name() string { return config.ProviderProxycurl }

func (a *proxycurlAdapter) headers() map[string]string {
	return mergeHeaders(a.opts.Headers, map[string]string{
		"Authorization": "Bearer " + a.opts.APIKey,
	})
}

func (a *proxycurlAdapter) Fetch(ctx context.Context, identifier string) (Payload, error) {
	if strings.TrimSpace(a.opts.APIKey) == "" {
		return nil, &FetchError{Provider: a.Name(), Kind: KindUnconfigured, Err: errors.New("set PROXYCURL_API_KEY")}
	}

	username := correctUsernameEncoding(identifier)
	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.opts.BaseURL,
		Headers: a.headers(),
		Query: map[string]string{
			"linkedin_profile_url": ProfileURL(username) + "/",
			"skills":               "include",
		},
	})
	if err != nil {
		fe := transportError(a.Name(), err)
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}
	if resp.StatusCode() != http.StatusOK {
		fe := statusError(a.Name(), resp.StatusCode(), resp.Header("Retry-After"), resp.Body())
		if fe == nil {
			a.log.DebugObj("Proxycurl fetch failed", "provider_fetch", map[string]any{
				"username": identifier,
				"status":   resp.StatusCode(),
				"body":     responseSnippet(resp.Body()),
			})
			return nil, nil
		}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}

	body := resp.Body()
	if strings.TrimSpace(string(body)) == "" {
		return nil, nil
	}
	payload, err := decodeObject(body)
	if err != nil {
		fe := &FetchError{Provider: a.Name(), Kind: KindDecode, Status: resp.StatusCode(), Err: err}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}
	if stringField(payload, "public_identifier") == "" && stringField(payload, "headline") == "" {
		a.log.WarnObj("Proxycurl returned invalid or empty profile data", "provider_fetch", map[string]any{"username": identifier})
		return nil, nil
	}

	a.log.DebugObj("Proxycurl fetch succeeded", "provider_fetch", map[string]any{"username": identifier})
	return payload, nil
}

// TestConnection queries the credit-balance endpoint.
func (a *proxycurlAdapter) TestConnection(ctx context.Context) bool {
	if strings.TrimSpace(a.opts.APIKey) == "" {
		a.log.ErrorObj("Proxycurl credentials not configured for connection test", "provider", a.Name())
		return false
	}
	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.creditBalanceURL(),
		Headers: a.headers(),
	})
	if err != nil {
		a.log.ErrorObj("Proxycurl connection test failed", "provider", map[string]any{"error": err.Error()})
		return false
	}
	if resp.StatusCode() == http.StatusOK {
		a.log.InfoObj("Proxycurl connection test successful", "provider", a.Name())
		return true
	}
	a.log.ErrorObj("Proxycurl connection test failed", "provider", map[string]any{"status": resp.StatusCode()})
	return false
}

func (a *proxycurlAdapter) creditBalanceURL() string {
	base := a.opts.BaseURL
	if i := strings.Index(base, "/v2/"); i >= 0 {
		base = base[:i]
	}
	return base + "/credit-balance"
}
