// Package app wires configuration into the enricher runtime shared by every entrypoint.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/batch"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/enrich"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/internal/metrics"
	"github.com/samvad-hq/samvad-profile-enricher/internal/nodes"
	"github.com/samvad-hq/samvad-profile-enricher/internal/normalize"
	"github.com/samvad-hq/samvad-profile-enricher/internal/quality"
	"github.com/samvad-hq/samvad-profile-enricher/internal/queue"
	"github.com/samvad-hq/samvad-profile-enricher/internal/server"
	"github.com/samvad-hq/samvad-profile-enricher/internal/storage"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/publishers"
)

// Enricher is the process runtime: one processor, one error history, one set of clients.
type Enricher struct {
	cfg       *config.Config
	clients   *nodes.Clients
	chain     *providers.Chain
	processor *enrich.Processor
	runner    *batch.Runner
	fanout    *publishers.Fanout
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	log       logger.Logger
}

// New builds the runtime from cfg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Enricher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	errs := apperr.NewHandler(log, apperr.NewHistory(apperr.HistoryCapacity))
	errs.OnError(m.StructuredError)

	var overrides *providers.ProviderSet
	if cfg.ProvidersFile != "" {
		set, err := providers.LoadProviders(cfg.ProvidersFile)
		if err != nil {
			return nil, fmt.Errorf("load providers file: %w", err)
		}
		overrides = set
		log.InfoObj("provider overrides loaded", "providers_meta", map[string]any{"count": len(set.All())})
	}
	providerReg := providers.BuildRegistry(cfg, overrides, nil, log)
	chain := providers.NewChain(providerReg, providers.ChainOptions{
		Names:     cfg.FallbackChain,
		Delay:     cfg.SleepBetweenRequests,
		Settings:  overrides,
		OnAttempt: m.ProviderAttempt,
	}, log)

	clients := nodes.NewClients(cfg, log)
	rules := quality.RulesFromConfig(cfg)
	transformer := normalize.NewTransformer(normalize.Options{Platform: cfg.Platform, Rules: rules}, log)

	controller := enrich.NewController(chain, transformer, clients.Nodes, errs, enrich.RetryOptions{
		MaxAttempts:      cfg.MaxRetries,
		Delay:            cfg.RetryDelay,
		QualityThreshold: cfg.QualityScoreThreshold,
		Rules:            rules,
	}, log)
	processor := enrich.NewProcessor(clients.Nodes, controller, chain, errs, enrich.ProcessorOptions{
		QualityThreshold: cfg.QualityScoreThreshold,
		MinPopulated:     cfg.MinPopulatedFields,
		FallbackChain:    cfg.FallbackChain,
		FallbackStatus:   cfg.FallbackStatus(),
	}, log)
	processor.SetObserver(m)

	fanout, err := publishers.FromFile(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	runner := batch.NewRunner(processor, batch.Options{Sink: fanout, Recorder: m}, log)

	return &Enricher{
		cfg:       cfg,
		clients:   clients,
		chain:     chain,
		processor: processor,
		runner:    runner,
		fanout:    fanout,
		registry:  registry,
		metrics:   m,
		log:       log,
	}, nil
}

// Process runs a direct batch.
func (e *Enricher) Process(ctx context.Context, jobs []domain.Job) batch.DirectResponse {
	return e.runner.RunDirect(ctx, jobs)
}

// ProviderStatus probes every configured provider.
func (e *Enricher) ProviderStatus(ctx context.Context) enrich.ProviderStatus {
	return e.processor.ProviderStatus(ctx)
}

// Candidates lists nodes the persistence service considers due for scraping.
func (e *Enricher) Candidates(ctx context.Context, limit int) ([]domain.Node, error) {
	return e.clients.Nodes.ScrapeCandidates(ctx, limit)
}

// ScrapeStats returns the persistence service's scrape statistics.
func (e *Enricher) ScrapeStats(ctx context.Context) (map[string]any, error) {
	return e.clients.Nodes.ScrapeStats(ctx)
}

// Serve runs the HTTP surface until ctx is cancelled.
func (e *Enricher) Serve(ctx context.Context) error {
	srv := server.New(e.runner, e.processor, server.Options{
		Addr:     e.cfg.HTTPAddr,
		Gatherer: e.registry,
		Observer: e.metrics,
	}, e.log)
	return srv.Run(ctx)
}

// RunWorker consumes the configured SQS queue until ctx is cancelled.
func (e *Enricher) RunWorker(ctx context.Context) error {
	if e.cfg.SQSQueueURL == "" {
		return fmt.Errorf("SQS_QUEUE_URL is required for the worker")
	}

	ledger, err := storage.NewLedger(e.cfg.LedgerType, storage.Options{
		TTL:             e.cfg.LedgerTTL,
		CleanupInterval: e.cfg.LedgerCleanup,
		BBoltPath:       e.cfg.BBoltPath,
		RedisAddr:       e.cfg.RedisAddr,
		RedisPassword:   e.cfg.RedisPassword,
		RedisDB:         e.cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer e.closeLedger(ledger)
	e.log.InfoObj("ledger initialized", "ledger_config", map[string]any{
		"type":                     e.cfg.LedgerType,
		"ttl_seconds":              int(e.cfg.LedgerTTL.Seconds()),
		"cleanup_interval_seconds": int(e.cfg.LedgerCleanup.Seconds()),
	})

	client, err := queue.NewClient(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("init sqs client: %w", err)
	}
	consumer := queue.NewConsumer(client, e.runner, ledger, queue.Options{
		QueueURL:    e.cfg.SQSQueueURL,
		WaitSeconds: e.cfg.SQSWaitSeconds,
		MaxMessages: e.cfg.SQSMaxMessages,
	}, e.log)
	return consumer.Run(ctx)
}

// Close releases publishers.
func (e *Enricher) Close() {
	if err := e.fanout.Close(); err != nil {
		e.log.ErrorObj("publisher close failed", "error", err.Error())
	}
}

// closeLedger closes the ledger backend, logging any errors encountered.
func (e *Enricher) closeLedger(l storage.Ledger) {
	if err := l.Close(); err != nil {
		e.log.ErrorObj("ledger close failed", "error", err.Error())
	}
}
