package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/internal/quality"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

// Backoff multipliers applied to the retry delay, by failure class.
const (
	QualityBackoff = 1.5
	FetchBackoff   = 2.0
)

// Retry reasons reported to the Observer.
const (
	RetryQuality = "quality"
	RetryFetch   = "fetch"
	RetryError   = "error"
)

// Disposition is the terminal state of a Controller run.
type Disposition string

const (
	DispositionSuccess Disposition = "success"
	DispositionDelete  Disposition = "delete"
	DispositionFail    Disposition = "fail"
)

// RetryOptions configures a Controller.
type RetryOptions struct {
	// MaxAttempts bounds the attempts per run; zero makes no provider calls.
	MaxAttempts      int
	Delay            time.Duration
	QualityThreshold int
	Rules            quality.Rules
	Sleep            providers.Sleeper
	Now              func() time.Time
}

// Result is what a Controller run ended with.
type Result struct {
	Disposition  Disposition
	Provider     string
	QualityScore int
	Attempts     int
	Duplicates   int
	// Err is set on failure, and on delete with the inaccessible-profile error.
	Err *apperr.StructuredError
}

// Controller runs fetch, transform, quality gate and persistence in a bounded retry loop.
type Controller struct {
	fetcher     Fetcher
	transformer Transformer
	repo        NodeRepository
	errs        *apperr.Handler
	opts        RetryOptions
	obs         Observer
	log         logger.Logger
}

// NewController wires a Controller. A nil errs handler gets a private history.
func NewController(fetcher Fetcher, transformer Transformer, repo NodeRepository, errs *apperr.Handler, opts RetryOptions, log logger.Logger) *Controller {
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Rules.RequiredFields) == 0 {
		opts.Rules = quality.DefaultRules()
	}
	log = logger.Ensure(log)
	if errs == nil {
		errs = apperr.NewHandler(log, nil)
	}
	return &Controller{
		fetcher:     fetcher,
		transformer: transformer,
		repo:        repo,
		errs:        errs,
		opts:        opts,
		obs:         nopObserver{},
		log:         log,
	}
}

// SetObserver installs o; nil restores the no-op observer.
func (c *Controller) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.obs = o
}

// step is the outcome of one attempt. A zero backoff means the result is terminal.
type step struct {
	result  Result
	backoff float64
	reason  string
	// exhausted builds the error reported when this was the last attempt.
	exhausted func() *apperr.StructuredError
}

// Run processes the node's username until a terminal disposition or the attempt bound.
func (c *Controller) Run(ctx context.Context, nodeID, username string) Result {
	limit := c.opts.MaxAttempts
	delay := c.opts.Delay

	for attempt := 1; attempt <= limit; attempt++ {
		s := c.attempt(ctx, nodeID, username, attempt, limit)
		s.result.Attempts = attempt
		if s.backoff == 0 {
			return s.result
		}

		if attempt == limit {
			r := s.result
			r.Disposition = DispositionFail
			if s.exhausted != nil {
				r.Err = s.exhausted()
			}
			return r
		}

		c.log.InfoObj("retrying profile", "retry", map[string]any{
			"node_id":  nodeID,
			"username": username,
			"attempt":  attempt,
			"reason":   s.reason,
			"delay":    delay.String(),
		})
		c.obs.RetryScheduled(s.reason, delay)
		c.opts.Sleep(delay)
		delay = time.Duration(float64(delay) * s.backoff)
	}

	// only reached with zero attempts configured
	return Result{Disposition: DispositionFail, Err: apperr.New(apperr.CodeUnknown, "Max retries reached",
		apperr.Context{NodeID: nodeID, Username: username})}
}

func (c *Controller) attempt(ctx context.Context, nodeID, username string, n, limit int) (s step) {
	defer func() {
		if r := recover(); r != nil {
			se := c.errs.HandleException(fmt.Errorf("panic during attempt %d: %v", n, r), apperr.Context{
				NodeID:   nodeID,
				Username: username,
				Metadata: map[string]any{"attempt": n},
			})
			s = step{result: Result{Disposition: DispositionFail, Err: se}, backoff: FetchBackoff, reason: RetryError}
		}
	}()

	res := c.fetcher.FetchWithFallback(ctx, username)
	if !res.Success || len(res.Data) == 0 {
		return c.fetchFailed(nodeID, username, res.Error, n, limit)
	}

	c.log.InfoObj("fetched profile", "fetch", map[string]any{
		"node_id":  nodeID,
		"username": username,
		"provider": res.Provider,
		"attempt":  n,
	})

	status := providers.Semantic(res.Data)
	switch {
	case status.Inaccessible:
		return c.deleteInaccessible(ctx, nodeID, username, res.Provider, status.Message, n, limit)
	case status.Failed:
		msg := status.Message
		if msg == "" {
			msg = "provider reported failure"
		}
		return c.fetchFailed(nodeID, username, fmt.Sprintf("%s: %s", res.Provider, msg), n, limit)
	}

	return c.evaluate(ctx, nodeID, username, res)
}

func (c *Controller) fetchFailed(nodeID, username, msg string, n, limit int) step {
	if msg == "" {
		msg = "Unknown error"
	}
	ectx := apperr.Context{NodeID: nodeID, Username: username}
	se := c.errs.Handle(apperr.New(apperr.CodeAPIRequestFailed,
		fmt.Sprintf("All providers failed on attempt %d/%d: %s", n, limit, msg), ectx), apperr.LevelDefault)

	return step{
		result:  Result{Disposition: DispositionFail, Err: se},
		backoff: FetchBackoff,
		reason:  RetryFetch,
		exhausted: func() *apperr.StructuredError {
			return c.errs.Handle(apperr.New(apperr.CodeAPIRequestFailed,
				"All providers failed after all retries: "+msg, ectx), apperr.LevelDefault)
		},
	}
}

func (c *Controller) deleteInaccessible(ctx context.Context, nodeID, username, provider, msg string, n, limit int) step {
	ectx := apperr.Context{Provider: provider, NodeID: nodeID, Username: username}
	se := c.errs.Handle(apperr.New(apperr.CodeProfileInaccessible,
		fmt.Sprintf("Profile cannot be accessed (Attempt %d/%d): %s", n, limit, msg), ectx), apperr.LevelDefault)

	deleted, err := c.repo.Delete(ctx, nodeID)
	if err != nil {
		failure := c.errs.Handle(apperr.New(apperr.CodeDBOperation,
			"Failed to delete inaccessible profile: "+err.Error(), apperr.Context{NodeID: nodeID, Username: username}),
			apperr.LevelDefault)
		return step{result: Result{Disposition: DispositionFail, Provider: provider, Err: failure}}
	}
	if deleted {
		c.log.InfoObj("deleted inaccessible profile", "node", map[string]any{"node_id": nodeID, "username": username})
	} else {
		c.log.WarnObj("inaccessible profile already gone", "node", map[string]any{"node_id": nodeID, "username": username})
	}
	return step{result: Result{Disposition: DispositionDelete, Provider: provider, Err: se}}
}

func (c *Controller) evaluate(ctx context.Context, nodeID, username string, res providers.FallbackResult) step {
	ectx := apperr.Context{Provider: res.Provider, NodeID: nodeID, Username: username}

	profile, err := c.transformer.Transform(res.Data, res.Provider)
	if err != nil {
		se := c.errs.Handle(apperr.Classify(err, ectx), apperr.LevelDefault)
		return step{result: Result{Disposition: DispositionFail, Provider: res.Provider, Err: se}}
	}

	a := quality.Assess(profile, res.Provider, c.opts.Rules)
	c.obs.QualityScored(res.Provider, a.Score)

	if !a.Valid {
		c.errs.Handle(apperr.New(apperr.CodeQualityBelowBar, "Data validation failed: "+a.Summary, apperr.Context{
			Provider: res.Provider, NodeID: nodeID, Username: username,
			Metadata: map[string]any{"quality_score": a.Score},
		}), apperr.LevelDefault)

		if a.Score < c.opts.QualityThreshold {
			th := c.errs.Handle(apperr.New(apperr.CodeQualityThreshold,
				fmt.Sprintf("Quality score %d below threshold %d", a.Score, c.opts.QualityThreshold), apperr.Context{
					Provider: res.Provider, NodeID: nodeID, Username: username,
					Metadata: map[string]any{"quality_score": a.Score, "threshold": c.opts.QualityThreshold},
				}), apperr.LevelDefault)
			return step{
				result:  Result{Disposition: DispositionFail, Provider: res.Provider, QualityScore: a.Score, Err: th},
				backoff: QualityBackoff,
				reason:  RetryQuality,
			}
		}

		c.log.WarnObj("persisting profile that failed validation", "quality", map[string]any{
			"node_id":  nodeID,
			"provider": res.Provider,
			"score":    a.Score,
			"report":   a.Report.String(),
		})
	}

	return c.persist(ctx, nodeID, username, res.Provider, profile, a.Score)
}

func (c *Controller) persist(ctx context.Context, nodeID, username, provider string, profile domain.Profile, score int) step {
	ectx := apperr.Context{Provider: provider, NodeID: nodeID, Username: username}
	doc, err := profile.Document()
	if err != nil {
		se := c.errs.Handle(apperr.New(apperr.CodeTransformFailed, "Render profile document: "+err.Error(), ectx), apperr.LevelDefault)
		return step{result: Result{Disposition: DispositionFail, Provider: provider, QualityScore: score, Err: se}}
	}
	doc["scrapped"] = true
	doc["apiScraped"] = true
	doc["lastAttemptedAt"] = c.opts.Now().UTC().Format(time.RFC3339Nano)
	doc["descriptionGenerated"] = false

	ok, err := c.repo.UpdateNode(ctx, nodeID, doc)
	if err != nil || !ok {
		details := "Failed to update node in database"
		if err != nil {
			details += ": " + err.Error()
		}
		se := c.errs.Handle(apperr.New(apperr.CodeDBOperation, details, apperr.Context{NodeID: nodeID, Username: username}), apperr.LevelDefault)
		return step{result: Result{Disposition: DispositionFail, Provider: provider, QualityScore: score, Err: se}}
	}

	dups, err := c.repo.UpdateDuplicates(ctx, username, nodeID, doc)
	switch {
	case err != nil:
		c.log.WarnObj("duplicate propagation failed", "node", map[string]any{
			"node_id":  nodeID,
			"username": username,
			"error":    err.Error(),
		})
	case dups > 0:
		c.log.InfoObj("updated duplicate profiles", "node", map[string]any{"username": username, "count": dups})
	default:
		c.log.DebugObj("no duplicate profiles to update", "node", map[string]any{"username": username})
	}

	c.log.InfoObj("persisted profile", "node", map[string]any{
		"node_id":       nodeID,
		"username":      username,
		"provider":      provider,
		"quality_score": score,
	})
	return step{result: Result{Disposition: DispositionSuccess, Provider: provider, QualityScore: score, Duplicates: dups}}
}
