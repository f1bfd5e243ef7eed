package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
)

// ErrAllProvidersFailed is the aggregate message of an exhausted chain.
const ErrAllProvidersFailed = "All providers failed or no providers available"

// Attempt outcomes reported to ChainOptions.OnAttempt.
const (
	AttemptSuccess = "success"
	AttemptEmpty   = "empty"
	AttemptError   = "error"
	AttemptSkipped = "skipped"
)

// Attempt records what one provider in the chain produced.
type Attempt struct {
	Provider string
	Outcome  string
	Err      error
}

// FallbackResult is the outcome of walking the fallback chain.
type FallbackResult struct {
	Success  bool
	Data     Payload
	Provider string
	Error    string
	Attempts []Attempt
}

// ChainOptions configures a Chain.
type ChainOptions struct {
	// Names is the ordered fallback chain.
	Names []string
	// Delay is inserted between consecutive provider attempts.
	Delay time.Duration
	// Settings may override Delay per provider through request_delay_ms.
	Settings  *ProviderSet
	Sleep     Sleeper
	OnAttempt func(Attempt)
}

// Chain tries providers in order until one yields data.
type Chain struct {
	registry *Registry
	opts     ChainOptions
	log      logger.Logger
}

// NewChain builds a fallback chain over reg.
func NewChain(reg *Registry, opts ChainOptions, log logger.Logger) *Chain {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Chain{registry: reg, opts: opts, log: logger.Ensure(log)}
}

// Names returns the configured chain.
func (c *Chain) Names() []string {
	out := make([]string, len(c.opts.Names))
	copy(out, c.opts.Names)
	return out
}

// Available lists the registered providers.
func (c *Chain) Available() []string { return c.registry.Names() }

// FetchWithFallback returns the first non-empty payload in chain order.
// Provider failures are logged and never abort the chain.
func (c *Chain) FetchWithFallback(ctx context.Context, identifier string) FallbackResult {
	var (
		res       FallbackResult
		attempted bool
		pause     time.Duration
	)

	for _, name := range c.opts.Names {
		adapter, ok := c.registry.Get(name)
		if !ok {
			c.log.DebugObj("provider not available, skipping", "provider", name)
			c.record(&res, Attempt{Provider: name, Outcome: AttemptSkipped})
			continue
		}

		if attempted && pause > 0 {
			c.opts.Sleep(pause)
		}
		attempted = true
		pause = c.delayAfter(name)

		c.log.InfoObj("trying provider", "provider_attempt", map[string]any{
			"provider": name,
			"username": identifier,
		})

		data, err := c.call(ctx, adapter, identifier)
		switch {
		case err != nil:
			c.log.WarnObj("provider failed", "provider_error", map[string]any{
				"provider": name,
				"username": identifier,
				"kind":     string(KindOf(err)),
				"error":    err.Error(),
			})
			c.record(&res, Attempt{Provider: name, Outcome: AttemptError, Err: err})
		case len(data) > 0:
			c.record(&res, Attempt{Provider: name, Outcome: AttemptSuccess})
			res.Success = true
			res.Data = data
			res.Provider = name
			return res
		default:
			c.log.DebugObj("provider returned no data", "provider_empty", map[string]any{
				"provider": name,
				"username": identifier,
			})
			c.record(&res, Attempt{Provider: name, Outcome: AttemptEmpty})
		}
	}

	res.Error = ErrAllProvidersFailed
	return res
}

// TestAll runs the connection test of every registered provider.
func (c *Chain) TestAll(ctx context.Context) map[string]bool {
	out := make(map[string]bool, c.registry.Len())
	for _, name := range c.registry.Names() {
		adapter, ok := c.registry.Get(name)
		if !ok {
			continue
		}
		out[name] = c.test(ctx, adapter)
	}
	return out
}

func (c *Chain) call(ctx context.Context, a Adapter, identifier string) (data Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("%s: panic during fetch: %v", a.Name(), r)
		}
	}()
	return a.Fetch(ctx, identifier)
}

func (c *Chain) test(ctx context.Context, a Adapter) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorObj("provider connection test panicked", "provider", map[string]any{
				"provider": a.Name(),
				"panic":    fmt.Sprint(r),
			})
			ok = false
		}
	}()
	return a.TestConnection(ctx)
}

func (c *Chain) delayAfter(name string) time.Duration {
	if p, ok := c.opts.Settings.Get(name); ok {
		if d, set := p.RequestDelay(); set {
			return d
		}
	}
	return c.opts.Delay
}

func (c *Chain) record(res *FallbackResult, a Attempt) {
	res.Attempts = append(res.Attempts, a)
	if c.opts.OnAttempt != nil {
		c.opts.OnAttempt(a)
	}
}
