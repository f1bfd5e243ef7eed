package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-profile-enricher/internal/app"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/spf13/cobra"
)

// runtime is populated by the root command's pre-run hook.
type runtime struct {
	cfg *config.Config
	log logger.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "enricher failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:           "enricher",
		Short:         "Enrich profile nodes from third-party data providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			for _, w := range cfg.Warnings {
				log.WarnObj("configuration warning", "config", w)
			}
			logger.InfoObj("enricher starting", "config", cfg.Summary())
			rt.cfg, rt.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}

	root.AddCommand(
		workerCmd(rt),
		serveCmd(rt),
		processCmd(rt),
		providersCmd(rt),
		candidatesCmd(rt),
	)
	return root
}

// withEnricher builds the runtime under a signal-aware context and runs fn.
func withEnricher(rt *runtime, fn func(ctx context.Context, e *app.Enricher) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := app.New(ctx, rt.cfg, rt.log)
	if err != nil {
		logger.ErrorObj("failed to initialize enricher", "error", err.Error())
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

func workerCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume node jobs from the SQS queue",
		RunE: func(*cobra.Command, []string) error {
			return withEnricher(rt, func(ctx context.Context, e *app.Enricher) error {
				if err := e.RunWorker(ctx); err != nil {
					return fmt.Errorf("worker run: %w", err)
				}
				return nil
			})
		},
	}
}

func serveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and metrics",
		RunE: func(*cobra.Command, []string) error {
			return withEnricher(rt, func(ctx context.Context, e *app.Enricher) error {
				if err := e.Serve(ctx); err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			})
		},
	}
}

func processCmd(rt *runtime) *cobra.Command {
	var nodeIDs []string
	var userID string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process nodes directly and print the batch result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(nodeIDs) == 0 {
				return fmt.Errorf("at least one --node-id is required")
			}
			jobs := make([]domain.Job, 0, len(nodeIDs))
			for _, id := range nodeIDs {
				jobs = append(jobs, domain.Job{NodeID: id, UserID: userID})
			}
			return withEnricher(rt, func(ctx context.Context, e *app.Enricher) error {
				return printJSON(cmd, e.Process(ctx, jobs))
			})
		},
	}
	cmd.Flags().StringArrayVar(&nodeIDs, "node-id", nil, "node to process (repeatable)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user the jobs are attributed to")
	return cmd
}

func providersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Test provider connectivity and show the fallback chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnricher(rt, func(ctx context.Context, e *app.Enricher) error {
				return printJSON(cmd, e.ProviderStatus(ctx))
			})
		},
	}
}

func candidatesCmd(rt *runtime) *cobra.Command {
	var limit int
	var run bool
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List nodes due for scraping, optionally processing them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnricher(rt, func(ctx context.Context, e *app.Enricher) error {
				nodes, err := e.Candidates(ctx, limit)
				if err != nil {
					return fmt.Errorf("list candidates: %w", err)
				}
				if !run {
					listed := make([]map[string]any, 0, len(nodes))
					for _, n := range nodes {
						listed = append(listed, map[string]any{
							"nodeId":           n.ID,
							"linkedinUsername": n.LinkedInUsername,
							"lastAttemptedAt":  n.LastAttemptedAt,
						})
					}
					return printJSON(cmd, listed)
				}
				jobs := make([]domain.Job, 0, len(nodes))
				for _, n := range nodes {
					jobs = append(jobs, domain.Job{NodeID: n.ID})
				}
				if len(jobs) == 0 {
					logger.InfoObj("no scrape candidates", "candidates", map[string]any{"limit": limit})
					return nil
				}
				return printJSON(cmd, e.Process(ctx, jobs))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of candidates")
	cmd.Flags().BoolVar(&run, "run", false, "process the candidates")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
