package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name    string
	data    Payload
	err     error
	panics  bool
	healthy bool
	calls   int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(context.Context, string) (Payload, error) {
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.data, f.err
}

func (f *fakeAdapter) TestConnection(context.Context) bool {
	if f.panics {
		panic("boom")
	}
	return f.healthy
}

type sleepRecorder struct{ slept []time.Duration }

func (s *sleepRecorder) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func TestFetchWithFallbackFirstSuccessWins(t *testing.T) {
	p1 := &fakeAdapter{name: "p1", err: &FetchError{Provider: "p1", Kind: KindTransient}}
	p2 := &fakeAdapter{name: "p2", data: Payload{"username": "jdoe"}}
	p3 := &fakeAdapter{name: "p3", data: Payload{"username": "other"}}
	rec := &sleepRecorder{}

	var seen []Attempt
	chain := NewChain(NewRegistry(p1, p2, p3), ChainOptions{
		Names:     []string{"p1", "p2", "p3"},
		Delay:     time.Second,
		Sleep:     rec.sleep,
		OnAttempt: func(a Attempt) { seen = append(seen, a) },
	}, nil)

	res := chain.FetchWithFallback(context.Background(), "jdoe")
	require.True(t, res.Success)
	assert.Equal(t, "p2", res.Provider)
	assert.Equal(t, "jdoe", res.Data["username"])
	assert.Equal(t, 1, p1.calls)
	assert.Equal(t, 0, p3.calls)
	assert.Equal(t, []time.Duration{time.Second}, rec.slept)

	require.Len(t, seen, 2)
	assert.Equal(t, AttemptError, seen[0].Outcome)
	assert.Equal(t, AttemptSuccess, seen[1].Outcome)
}

func TestFetchWithFallbackExhausted(t *testing.T) {
	p1 := &fakeAdapter{name: "p1"}
	p2 := &fakeAdapter{name: "p2", panics: true}
	p3 := &fakeAdapter{name: "p3", data: Payload{}}
	rec := &sleepRecorder{}

	chain := NewChain(NewRegistry(p1, p2, p3), ChainOptions{
		Names: []string{"missing", "p1", "p2", "p3"},
		Delay: 500 * time.Millisecond,
		Sleep: rec.sleep,
	}, nil)

	res := chain.FetchWithFallback(context.Background(), "jdoe")
	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Empty(t, res.Provider)
	assert.Equal(t, ErrAllProvidersFailed, res.Error)
	assert.Equal(t, 1, p3.calls)

	// no pause before the first attempt or after the last one
	assert.Len(t, rec.slept, 2)

	outcomes := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		outcomes = append(outcomes, a.Outcome)
	}
	assert.Equal(t, []string{AttemptSkipped, AttemptEmpty, AttemptError, AttemptEmpty}, outcomes)
	assert.ErrorContains(t, res.Attempts[2].Err, "panic")
}

func TestFetchWithFallbackReturnsSemanticFailurePayload(t *testing.T) {
	p1 := &fakeAdapter{name: "p1", data: InaccessiblePayload()}
	p2 := &fakeAdapter{name: "p2", data: Payload{"username": "jdoe"}}
	chain := NewChain(NewRegistry(p1, p2), ChainOptions{Names: []string{"p1", "p2"}, Sleep: func(time.Duration) {}}, nil)

	res := chain.FetchWithFallback(context.Background(), "jdoe")
	require.True(t, res.Success)
	assert.Equal(t, "p1", res.Provider)
	assert.True(t, Semantic(res.Data).Inaccessible)
	assert.Equal(t, 0, p2.calls)
}

func TestPerProviderDelayOverride(t *testing.T) {
	p1 := &fakeAdapter{name: "p1"}
	p2 := &fakeAdapter{name: "p2"}
	rec := &sleepRecorder{}
	chain := NewChain(NewRegistry(p1, p2), ChainOptions{
		Names:    []string{"p1", "p2"},
		Delay:    time.Second,
		Settings: NewProviderSet(Provider{ID: "p1", RequestDelayMs: 250}),
		Sleep:    rec.sleep,
	}, nil)

	chain.FetchWithFallback(context.Background(), "jdoe")
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, rec.slept)
}

func TestTestAll(t *testing.T) {
	chain := NewChain(NewRegistry(
		&fakeAdapter{name: "up", healthy: true},
		&fakeAdapter{name: "down"},
		&fakeAdapter{name: "broken", panics: true},
	), ChainOptions{}, nil)

	assert.Equal(t, map[string]bool{"up": true, "down": false, "broken": false}, chain.TestAll(context.Background()))
}

func TestRegistryIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(&fakeAdapter{name: "RapidAPI"}, nil)
	_, ok := reg.Get(" rapidapi ")
	assert.True(t, ok)
	assert.Equal(t, []string{"rapidapi"}, reg.Names())

	reg.Register(&fakeAdapter{name: "rapidapi"})
	assert.Equal(t, 1, reg.Len())
}

func TestBuildRegistryRegistersConfiguredProviders(t *testing.T) {
	cfg := &config.Config{
		RapidAPIKey:          "k",
		RapidAPIHost:         "h",
		ProxycurlAPIKey:      "p",
		ProxycurlBaseURL:     "https://nubela.example/proxycurl/api/v2/linkedin",
		ProviderRateLimitRPS: 5,
		FallbackChain:        []string{"rapidapi", "scrapfly", "proxycurl"},
	}
	reg := BuildRegistry(cfg, nil, testClient(), nil)
	assert.Equal(t, []string{"rapidapi", "proxycurl"}, reg.Names())

	a, ok := reg.Get("rapidapi")
	require.True(t, ok)
	_, throttled := a.(*throttledAdapter)
	assert.True(t, throttled)
}

func TestRateLimitWaitFailureIsRateLimited(t *testing.T) {
	a := WithRateLimit(&fakeAdapter{name: "p1", data: Payload{"a": 1}}, 0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := a.Fetch(ctx, "jdoe")
	require.NoError(t, err)

	cancel()
	_, err = a.Fetch(ctx, "jdoe")
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
