package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
)

// RecentErrorsLimit is the number of errors included in ErrorSummary.
const RecentErrorsLimit = 10

// ProcessorOptions carries the settings surfaced by the status views.
type ProcessorOptions struct {
	QualityThreshold int
	MinPopulated     int
	FallbackChain    []string
	FallbackStatus   map[string]bool
}

// Processor applies the node lifecycle: load, precondition checks, retry loop, disposition.
type Processor struct {
	repo       NodeRepository
	controller *Controller
	prober     ProviderProber
	errs       *apperr.Handler
	opts       ProcessorOptions
	obs        Observer
	log        logger.Logger
}

// NewProcessor wires a Processor. errs should be the same handler the controller uses.
func NewProcessor(repo NodeRepository, controller *Controller, prober ProviderProber, errs *apperr.Handler, opts ProcessorOptions, log logger.Logger) *Processor {
	log = logger.Ensure(log)
	if errs == nil {
		errs = apperr.NewHandler(log, nil)
	}
	p := &Processor{
		repo:       repo,
		controller: controller,
		prober:     prober,
		errs:       errs,
		opts:       opts,
		obs:        nopObserver{},
		log:        log,
	}
	if prober != nil {
		log.InfoObj("processor initialized", "providers", map[string]any{
			"available":      prober.Available(),
			"fallback_chain": prober.Names(),
		})
	}
	return p
}

// SetObserver installs o on the processor and its controller.
func (p *Processor) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	p.obs = o
	if p.controller != nil {
		p.controller.SetObserver(o)
	}
}

// ProcessNode enriches one node and reports the terminal outcome. It never panics.
func (p *Processor) ProcessNode(ctx context.Context, nodeID string) (out domain.Outcome) {
	start := time.Now()
	var username string

	defer func() {
		if r := recover(); r != nil {
			se := p.errs.HandleException(fmt.Errorf("panic while processing node: %v", r), apperr.Context{
				NodeID:   nodeID,
				Username: username,
			})
			p.markError(context.WithoutCancel(ctx), nodeID, se.LogMessage())
			out = domain.Outcome{Error: se.LogMessage()}
		}
		p.obs.NodeProcessed(out, time.Since(start))
	}()

	node, err := p.repo.Fetch(ctx, nodeID)
	if err != nil {
		se := p.errs.HandleException(err, apperr.Context{NodeID: nodeID})
		p.markError(ctx, nodeID, se.LogMessage())
		return domain.Outcome{Error: se.LogMessage()}
	}
	if node == nil {
		se := p.errs.Handle(apperr.New(apperr.CodeNodeNotFound,
			fmt.Sprintf("Node %s not found", nodeID), apperr.Context{NodeID: nodeID}), apperr.LevelDefault)
		return domain.Outcome{Error: se.LogMessage()}
	}

	username = node.LinkedInUsername
	if username == "" {
		se := p.errs.Handle(apperr.New(apperr.CodeMissingUsername,
			fmt.Sprintf("Missing linkedinUsername for node %s", nodeID), apperr.Context{NodeID: nodeID}), apperr.LevelDefault)
		p.markError(ctx, nodeID, se.LogMessage())
		return domain.Outcome{Error: se.LogMessage()}
	}

	if node.AlreadyProcessed() {
		p.errs.Handle(apperr.New(apperr.CodeAlreadyProcessed,
			fmt.Sprintf("Node %s (%s) already processed", nodeID, username),
			apperr.Context{NodeID: nodeID, Username: username}), apperr.LevelInfo)
		return domain.Outcome{Success: true, AlreadyProcessed: true}
	}

	p.log.InfoObj("processing node", "node", map[string]any{"node_id": nodeID, "username": username})
	if _, err := p.repo.TouchLastAttempted(ctx, nodeID); err != nil {
		p.log.ErrorObj("failed to update lastAttemptedAt", "node", map[string]any{
			"node_id": nodeID,
			"error":   err.Error(),
		})
	}

	res := p.controller.Run(ctx, nodeID, username)
	switch res.Disposition {
	case DispositionSuccess:
		p.log.InfoObj("processed node", "node", map[string]any{
			"node_id":       nodeID,
			"username":      username,
			"provider":      res.Provider,
			"quality_score": res.QualityScore,
			"attempts":      res.Attempts,
		})
		return domain.Outcome{Success: true, NewlyScraped: true}
	case DispositionDelete:
		return domain.Outcome{Success: true}
	}

	msg := "Max retries reached"
	if res.Err != nil {
		msg = res.Err.LogMessage()
	}
	p.log.ErrorObj("failed to process node", "node", map[string]any{
		"node_id":  nodeID,
		"username": username,
		"error":    msg,
	})
	// the caller may have been cancelled; the error still has to reach the node
	p.markError(context.WithoutCancel(ctx), nodeID, msg)
	return domain.Outcome{Error: msg}
}

func (p *Processor) markError(ctx context.Context, nodeID, message string) {
	if _, err := p.repo.MarkError(ctx, nodeID, message); err != nil {
		p.log.ErrorObj("failed to mark node error", "node", map[string]any{
			"node_id": nodeID,
			"error":   err.Error(),
		})
	}
}

// ProviderStatus describes configured providers and their live connectivity.
type ProviderStatus struct {
	AvailableProviders []string        `json:"available_providers"`
	ProviderTests      map[string]bool `json:"provider_tests"`
	FallbackChain      []string        `json:"fallback_chain"`
	FallbackStatus     map[string]bool `json:"fallback_status"`
	QualityThreshold   int             `json:"quality_threshold"`
	MinFieldsThreshold int             `json:"min_fields_threshold"`
}

// ProviderStatus probes every registered provider.
func (p *Processor) ProviderStatus(ctx context.Context) ProviderStatus {
	st := ProviderStatus{
		FallbackChain:      p.opts.FallbackChain,
		FallbackStatus:     p.opts.FallbackStatus,
		QualityThreshold:   p.opts.QualityThreshold,
		MinFieldsThreshold: p.opts.MinPopulated,
	}
	if p.prober != nil {
		st.AvailableProviders = p.prober.Available()
		st.ProviderTests = p.prober.TestAll(ctx)
	}
	return st
}

// Health condenses error statistics.
type Health struct {
	TotalErrors     int            `json:"total_errors"`
	CriticalErrors  int            `json:"critical_errors"`
	RetryableErrors int            `json:"retryable_errors"`
	ProviderErrors  map[string]int `json:"provider_errors"`
}

// ErrorSummary is the error history view.
type ErrorSummary struct {
	ErrorStatistics apperr.Statistics `json:"error_statistics"`
	RecentErrors    []map[string]any  `json:"recent_errors"`
	ProcessorHealth Health            `json:"processor_health"`
}

// ErrorSummary reports statistics and the most recent handled errors.
func (p *Processor) ErrorSummary() ErrorSummary {
	stats := p.errs.Summary()
	recent := p.errs.Recent(RecentErrorsLimit)
	out := ErrorSummary{
		ErrorStatistics: stats,
		RecentErrors:    make([]map[string]any, 0, len(recent)),
		ProcessorHealth: Health{
			TotalErrors:     stats.Total,
			CriticalErrors:  stats.BySeverity[string(apperr.SeverityCritical)],
			RetryableErrors: stats.Retryable,
			ProviderErrors:  stats.ByProvider,
		},
	}
	for _, e := range recent {
		out.RecentErrors = append(out.RecentErrors, e.Fields())
	}
	return out
}
