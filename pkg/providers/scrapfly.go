package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
)

// ScrapflyOptions configures the Scrapfly adapter.
type ScrapflyOptions struct {
	APIKey  string
	BaseURL string
	Country string
	Headers map[string]string
}

type scrapflyAdapter struct {
	opts   ScrapflyOptions
	client HTTPClient
	log    logger.Logger
}

type scrapflyResponse struct {
	Result struct {
		Content    string `json:"content"`
		StatusCode int    `json:"status_code"`
		URL        string `json:"url"`
	} `json:"result"`
}

// NewScrapflyAdapter builds an adapter that scrapes the public profile page
// through Scrapfly and parses it into a ScrapedProfile payload.
func NewScrapflyAdapter(opts ScrapflyOptions, client HTTPClient, log logger.Logger) Adapter {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	log = logger.Ensure(log)
	if strings.TrimSpace(opts.APIKey) == "" {
		log.WarnObj("Scrapfly API key not configured; adapter will not be functional", "provider", config.ProviderScrapfly)
	}
	return &scrapflyAdapter{opts: opts, client: client, log: log}
}

func (a *scrapflyAdapter) Name() string { return config.ProviderScrapfly }

func (a *scrapflyAdapter) Fetch(ctx context.Context, identifier string) (Payload, error) {
	if strings.TrimSpace(a.opts.APIKey) == "" {
		return nil, &FetchError{Provider: a.Name(), Kind: KindUnconfigured, Err: errors.New("set SCRAPFLY_API_KEY")}
	}

	username := correctUsernameEncoding(identifier)
	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.opts.BaseURL,
		Headers: a.opts.Headers,
		Query: map[string]string{
			"key":     a.opts.APIKey,
			"url":     ProfileURL(username) + "/",
			"asp":     "true",
			"country": a.opts.Country,
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
			a.log.DebugObj("Scrapfly fetch failed", "provider_fetch", map[string]any{
				"username": identifier,
				"status":   resp.StatusCode(),
				"body":     responseSnippet(resp.Body()),
			})
			return nil, nil
		}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}

	var sr scrapflyResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		fe := &FetchError{Provider: a.Name(), Kind: KindDecode, Status: resp.StatusCode(), Err: err}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}

	upstream := sr.Result.StatusCode
	switch {
	case isAuthWall(sr.Result.URL):
		fe := &FetchError{Provider: a.Name(), Kind: KindRateLimited, Status: upstream, Err: errors.New("redirected to authwall")}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	case upstream == http.StatusNotFound || upstream == http.StatusGone || isMissingPage(sr.Result.URL):
		a.log.WarnObj("profile page is not publicly accessible", "provider_fetch", map[string]any{
			"username": identifier,
			"status":   upstream,
			"url":      sr.Result.URL,
		})
		return InaccessiblePayload(), nil
	case upstream >= http.StatusBadRequest:
		fe := &FetchError{Provider: a.Name(), Kind: KindTransient, Status: upstream, Err: fmt.Errorf("upstream status %d", upstream)}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}

	if strings.TrimSpace(sr.Result.Content) == "" {
		a.log.WarnObj("Scrapfly returned empty page content", "provider_fetch", map[string]any{"username": identifier})
		return nil, nil
	}

	profile, err := ParseProfileHTML([]byte(sr.Result.Content), username)
	if err != nil {
		fe := &FetchError{Provider: a.Name(), Kind: KindDecode, Err: err}
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}
	if profile.Headline == "" && profile.FullName == "" {
		a.log.WarnObj("Scrapfly page has no profile content", "provider_fetch", map[string]any{"username": identifier})
		return nil, nil
	}

	payload, err := toPayload(profile)
	if err != nil {
		return nil, &FetchError{Provider: a.Name(), Kind: KindDecode, Err: err}
	}
	a.log.DebugObj("Scrapfly fetch succeeded", "provider_fetch", map[string]any{"username": identifier})
	return payload, nil
}

// TestConnection queries the Scrapfly account endpoint.
func (a *scrapflyAdapter) TestConnection(ctx context.Context) bool {
	if strings.TrimSpace(a.opts.APIKey) == "" {
		a.log.ErrorObj("Scrapfly credentials not configured for connection test", "provider", a.Name())
		return false
	}
	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.accountURL(),
		Headers: a.opts.Headers,
		Query:   map[string]string{"key": a.opts.APIKey},
	})
	if err != nil {
		a.log.ErrorObj("Scrapfly connection test failed", "provider", map[string]any{"error": err.Error()})
		return false
	}
	if resp.StatusCode() == http.StatusOK {
		a.log.InfoObj("Scrapfly connection test successful", "provider", a.Name())
		return true
	}
	a.log.ErrorObj("Scrapfly connection test failed", "provider", map[string]any{"status": resp.StatusCode()})
	return false
}

func (a *scrapflyAdapter) accountURL() string {
	base := strings.TrimSuffix(a.opts.BaseURL, "/scrape")
	return base + "/account"
}

// isAuthWall reports a login gate; the profile may still exist.
func isAuthWall(finalURL string) bool {
	return strings.Contains(strings.ToLower(finalURL), "/authwall")
}

func isMissingPage(finalURL string) bool {
	return strings.Contains(strings.ToLower(finalURL), "linkedin.com/404")
}
