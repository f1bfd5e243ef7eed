package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/publishers"
)

// NoNodesMessage is returned when a direct payload names no nodes.
const NoNodesMessage = "No nodes to process"

// NodeProcessor processes a single node to a terminal outcome.
type NodeProcessor interface {
	ProcessNode(ctx context.Context, nodeID string) domain.Outcome
}

// Sink receives one event per processed job. *publishers.Fanout satisfies it.
type Sink interface {
	Publish(ctx context.Context, evt publishers.OutcomeEvent) (int, error)
}

// Recorder observes completed batches.
type Recorder interface {
	BatchCompleted(source string, processed, failed int, elapsed time.Duration)
}

// Result is the per-job entry of a direct response.
type Result struct {
	NodeID           string `json:"nodeId"`
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	NewlyScraped     bool   `json:"newlyScraped"`
	UserID           string `json:"userId,omitempty"`
	Error            string `json:"error,omitempty"`
}

// DirectResponse summarizes a direct invocation.
type DirectResponse struct {
	RunID           string
	Processed       int
	Succeeded       int
	Failed          int
	ProfilesScraped int
	Results         []Result
	Success         bool
	// Message is set only when nothing was processed.
	Message string
}

// MarshalJSON renders the response body. A single-job response also carries that job's fields
// at the top level.
func (r DirectResponse) MarshalJSON() ([]byte, error) {
	if r.Message != "" {
		return json.Marshal(map[string]any{
			"processed": r.Processed,
			"succeeded": r.Succeeded,
			"failed":    r.Failed,
			"message":   r.Message,
		})
	}

	results := r.Results
	if results == nil {
		results = []Result{}
	}
	body := map[string]any{
		"processed":        r.Processed,
		"succeeded":        r.Succeeded,
		"failed":           r.Failed,
		"profiles_scraped": r.ProfilesScraped,
		"results":          results,
		"success":          r.Success,
	}
	if len(results) == 1 {
		res := results[0]
		body["nodeId"] = res.NodeID
		body["success"] = res.Success
		body["alreadyProcessed"] = res.AlreadyProcessed
		body["newlyScraped"] = res.NewlyScraped
		if res.UserID != "" {
			body["userId"] = res.UserID
		}
		if res.Error != "" {
			body["error"] = res.Error
		}
	}
	return json.Marshal(body)
}

// ItemFailure names a queue message that should be redelivered.
type ItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// SQSResponse summarizes a queue batch.
type SQSResponse struct {
	RunID             string        `json:"-"`
	Processed         int           `json:"processed"`
	Succeeded         int           `json:"succeeded"`
	Failed            int           `json:"failed"`
	ProfilesScraped   int           `json:"profiles_scraped"`
	BatchItemFailures []ItemFailure `json:"batchItemFailures,omitempty"`
}

// FailedItem reports whether the message id is listed for redelivery.
func (r SQSResponse) FailedItem(id string) bool {
	for _, f := range r.BatchItemFailures {
		if f.ItemIdentifier == id {
			return true
		}
	}
	return false
}

// Options configures a Runner.
type Options struct {
	Sink     Sink
	Recorder Recorder
	NewRunID func() string
}

// Runner processes jobs strictly one after another. A failing or panicking job never aborts the batch.
type Runner struct {
	proc NodeProcessor
	opts Options
	log  logger.Logger
}

// NewRunner builds a Runner over proc.
func NewRunner(proc NodeProcessor, opts Options, log logger.Logger) *Runner {
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Runner{proc: proc, opts: opts, log: logger.Ensure(log)}
}

// HandleDirect parses body and runs the jobs it names. Unparseable or empty bodies
// yield the "No nodes to process" response.
func (r *Runner) HandleDirect(ctx context.Context, body []byte) DirectResponse {
	jobs, err := ParseDirect(body)
	if err != nil {
		r.log.InfoObj("empty event received; nothing to process", "batch", map[string]any{"reason": err.Error()})
		return DirectResponse{Message: NoNodesMessage}
	}
	return r.RunDirect(ctx, jobs)
}

// RunDirect processes jobs and reports per-job results.
func (r *Runner) RunDirect(ctx context.Context, jobs []domain.Job) DirectResponse {
	if len(jobs) == 0 {
		return DirectResponse{Message: NoNodesMessage}
	}

	start := time.Now()
	resp := DirectResponse{RunID: r.opts.NewRunID(), Processed: len(jobs), Results: make([]Result, 0, len(jobs))}
	r.log.InfoObj("direct invocation", "batch", map[string]any{"run_id": resp.RunID, "nodes": len(jobs)})

	for _, job := range jobs {
		out := r.process(ctx, resp.RunID, publishers.SourceDirect, job)
		resp.Results = append(resp.Results, Result{
			NodeID:           job.NodeID,
			Success:          out.Success,
			AlreadyProcessed: out.AlreadyProcessed,
			NewlyScraped:     out.NewlyScraped,
			UserID:           job.UserID,
			Error:            out.Error,
		})
		if out.Success {
			resp.Succeeded++
			if scraped(out) {
				resp.ProfilesScraped++
			}
		}
	}
	resp.Failed = resp.Processed - resp.Succeeded
	resp.Success = resp.Succeeded == resp.Processed

	r.finish(publishers.SourceDirect, resp.RunID, resp.Processed, resp.Succeeded, resp.Failed, resp.ProfilesScraped, start)
	return resp
}

// RunSQS processes queue records. Records that fail to parse or process are reported
// in BatchItemFailures so the queue redelivers them.
func (r *Runner) RunSQS(ctx context.Context, records []Record) SQSResponse {
	start := time.Now()
	resp := SQSResponse{RunID: r.opts.NewRunID(), Processed: len(records)}
	r.log.InfoObj("received sqs records", "batch", map[string]any{"run_id": resp.RunID, "records": len(records)})

	for _, rec := range records {
		job, err := ParseSQSRecord(rec)
		if err != nil {
			r.log.ErrorObj("error processing sqs record", "batch", map[string]any{
				"message_id": rec.MessageID,
				"error":      err.Error(),
			})
			resp.BatchItemFailures = append(resp.BatchItemFailures, ItemFailure{ItemIdentifier: firstNonEmpty(rec.MessageID, "unknown")})
			continue
		}

		out := r.process(ctx, resp.RunID, publishers.SourceSQS, job)
		if !out.Success {
			r.log.ErrorObj("processing failed for node", "batch", map[string]any{
				"node_id": job.NodeID,
				"error":   out.Error,
			})
			resp.BatchItemFailures = append(resp.BatchItemFailures, ItemFailure{
				ItemIdentifier: firstNonEmpty(rec.MessageID, job.NodeID, "unknown"),
			})
			continue
		}
		resp.Succeeded++
		if scraped(out) {
			resp.ProfilesScraped++
		}
	}
	resp.Failed = len(resp.BatchItemFailures)

	r.finish(publishers.SourceSQS, resp.RunID, resp.Processed, resp.Succeeded, resp.Failed, resp.ProfilesScraped, start)
	return resp
}

func (r *Runner) process(ctx context.Context, runID, source string, job domain.Job) (out domain.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = domain.Outcome{Error: fmt.Sprintf("panic while processing node %s: %v", job.NodeID, rec)}
			r.log.ErrorObj("node processing panicked", "batch", map[string]any{"node_id": job.NodeID, "error": out.Error})
		}
		r.publish(ctx, runID, source, job, out)
	}()

	if err := ctx.Err(); err != nil {
		return domain.Outcome{Error: "processing skipped: " + err.Error()}
	}
	return r.proc.ProcessNode(ctx, job.NodeID)
}

func (r *Runner) publish(ctx context.Context, runID, source string, job domain.Job, out domain.Outcome) {
	if r.opts.Sink == nil {
		return
	}
	evt := publishers.NewOutcomeEvent(runID, source, job, out)
	if _, err := r.opts.Sink.Publish(context.WithoutCancel(ctx), evt); err != nil {
		r.log.WarnObj("outcome publish failed", "publish", map[string]any{
			"node_id":  job.NodeID,
			"event_id": evt.ID,
			"error":    err.Error(),
		})
	}
}

func (r *Runner) finish(source, runID string, processed, succeeded, failed, scrapedCount int, start time.Time) {
	elapsed := time.Since(start)
	if r.opts.Recorder != nil {
		r.opts.Recorder.BatchCompleted(source, processed, failed, elapsed)
	}
	r.log.InfoObj("batch complete", "batch", map[string]any{
		"run_id":           runID,
		"source":           source,
		"processed":        processed,
		"succeeded":        succeeded,
		"failed":           failed,
		"profiles_scraped": scrapedCount,
		"elapsed_ms":       elapsed.Milliseconds(),
	})
}

func scraped(out domain.Outcome) bool {
	return out.NewlyScraped && !out.AlreadyProcessed
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
