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

const placeholderRapidAPIKey = "YOUR_RAPIDAPI_KEY_HERE"

// RapidAPIOptions configures the RapidAPI LinkedIn profile adapter.
type RapidAPIOptions struct {
	APIKey string
	Host   string
	// Path is appended to https://{Host}; defaults to "/".
	Path string
	// BaseURL replaces https://{Host}{Path} when set.
	BaseURL string
	Headers map[string]string
}

type rapidAPIAdapter struct {
	opts   RapidAPIOptions
	client HTTPClient
	log    logger.Logger
}

// NewRapidAPIAdapter builds the RapidAPI adapter.
func NewRapidAPIAdapter(opts RapidAPIOptions, client HTTPClient, log logger.Logger) Adapter {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	log = logger.Ensure(log)
	a := &rapidAPIAdapter{opts: opts, client: client, log: log}
	if !a.configured() {
		log.WarnObj("RapidAPI key or host not configured; adapter will not be functional", "provider", config.ProviderRapidAPI)
	}
	return a
}

func (a *rapidAPIAdapter) Name() string { return config.ProviderRapidAPI }

func (a *rapidAPIAdapter) configured() bool {
	key := strings.TrimSpace(a.opts.APIKey)
	return key != "" && key != placeholderRapidAPIKey && strings.TrimSpace(a.opts.Host) != ""
}

func (a *rapidAPIAdapter) endpoint() string {
	if a.opts.BaseURL != "" {
		return a.opts.BaseURL
	}
	path := a.opts.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://" + strings.TrimSpace(a.opts.Host) + path
}

func (a *rapidAPIAdapter) headers() map[string]string {
	return mergeHeaders(a.opts.Headers, map[string]string{
		"x-rapidapi-key":  a.opts.APIKey,
		"x-rapidapi-host": a.opts.Host,
	})
}

func (a *rapidAPIAdapter) Fetch(ctx context.Context, identifier string) (Payload, error) {
	if !a.configured() {
		a.log.ErrorObj("RapidAPI credentials not configured", "provider_fetch", map[string]any{"username": identifier})
		return nil, &FetchError{Provider: a.Name(), Kind: KindUnconfigured, Err: errors.New("set RAPIDAPI_KEY and RAPIDAPI_HOST")}
	}

	username := correctUsernameEncoding(identifier)
	if username != identifier {
		a.log.DebugObj("corrected username encoding", "provider_fetch", map[string]any{
			"original":  identifier,
			"corrected": username,
		})
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.endpoint(),
		Headers: a.headers(),
		Query:   map[string]string{"username": username},
	})
	if err != nil {
		fe := transportError(a.Name(), err)
		logFetchError(a.log, fe, identifier)
		return nil, fe
	}

	if resp.StatusCode() != http.StatusOK {
		fe := statusError(a.Name(), resp.StatusCode(), resp.Header("Retry-After"), resp.Body())
		if fe == nil {
			a.log.DebugObj("RapidAPI fetch failed", "provider_fetch", map[string]any{
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
		a.log.WarnObj("RapidAPI returned an empty response", "provider_fetch", map[string]any{"username": identifier})
		return nil, nil
	}

	payload, err := decodeObject(body)
	if err != nil {
		fe := &FetchError{Provider: a.Name(), Kind: KindDecode, Status: resp.StatusCode(), Err: err}
		a.log.ErrorObj("RapidAPI response is not a JSON object", "provider_fetch", map[string]any{
			"username": identifier,
			"error":    err.Error(),
			"preview":  responseSnippet(body),
		})
		return nil, fe
	}

	if st := Semantic(payload); st.Failed {
		a.log.WarnObj("RapidAPI reported an error", "provider_fetch", map[string]any{
			"username": identifier,
			"message":  st.Message,
		})
		return payload, nil
	}
	if stringField(payload, "username") == "" && stringField(payload, "headline") == "" {
		a.log.WarnObj("RapidAPI returned invalid or empty profile data", "provider_fetch", map[string]any{"username": identifier})
		return nil, nil
	}

	a.log.DebugObj("RapidAPI fetch succeeded", "provider_fetch", map[string]any{"username": identifier})
	return payload, nil
}

// TestConnection treats any status below 500 as a reachable, authenticated API.
func (a *rapidAPIAdapter) TestConnection(ctx context.Context) bool {
	if !a.configured() {
		a.log.ErrorObj("RapidAPI credentials not configured for connection test", "provider", a.Name())
		return false
	}
	resp, err := a.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.endpoint(),
		Headers: a.headers(),
		Query:   map[string]string{"username": "test"},
	})
	if err != nil {
		a.log.ErrorObj("RapidAPI connection test failed", "provider", map[string]any{"error": err.Error()})
		return false
	}
	if s := resp.StatusCode(); s >= 200 && s < 500 {
		a.log.InfoObj("RapidAPI connection test successful", "provider", a.Name())
		return true
	}
	a.log.ErrorObj("RapidAPI connection test failed", "provider", map[string]any{"status": resp.StatusCode()})
	return false
}

// logFetchError logs fe at the level its kind warrants.
func logFetchError(log logger.Logger, fe *FetchError, username string) {
	fields := map[string]any{
		"provider": fe.Provider,
		"kind":     string(fe.Kind),
		"username": username,
	}
	if fe.Status > 0 {
		fields["status"] = fe.Status
	}
	if fe.Err != nil {
		fields["error"] = fe.Err.Error()
	}
	switch fe.Kind {
	case KindRateLimited:
		retryAfter := fe.RetryAfter
		if retryAfter == "" {
			retryAfter = "unknown"
		}
		fields["retry_after"] = retryAfter
		log.WarnObj("provider rate limited", "provider_fetch", fields)
	case KindAuth, KindUnconfigured, KindDecode:
		log.ErrorObj("provider rejected request", "provider_fetch", fields)
	case KindNotFound:
		log.InfoObj("profile not found at provider", "provider_fetch", fields)
	default:
		log.WarnObj("provider request failed; may retry", "provider_fetch", fields)
	}
}
