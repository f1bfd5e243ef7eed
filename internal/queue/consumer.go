// Package queue long-polls SQS and feeds received messages to the batch runner.
package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rotisserie/eris"
	"github.com/samvad-hq/samvad-profile-enricher/internal/batch"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/internal/storage"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/awsconfig"
)

// maxDeleteBatch is the SQS limit on entries per DeleteMessageBatch call.
const maxDeleteBatch = 10

// API is the subset of the SQS client the consumer uses.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// BatchRunner processes a batch of queue records.
type BatchRunner interface {
	RunSQS(ctx context.Context, records []batch.Record) batch.SQSResponse
}

// Options configures a Consumer.
type Options struct {
	QueueURL     string
	WaitSeconds  int32
	MaxMessages  int32
	ErrorBackoff time.Duration
}

// Consumer receives messages, runs them, and deletes the ones that succeeded.
// Failed messages are left on the queue for redelivery.
type Consumer struct {
	client API
	runner BatchRunner
	ledger storage.Ledger
	opts   Options
	log    logger.Logger
}

// NewClient builds an SQS client from the process configuration.
func NewClient(ctx context.Context, cfg *config.Config) (*sqs.Client, error) {
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.AWSEndpointURL,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// NewConsumer wires a Consumer. A nil ledger disables duplicate suppression.
func NewConsumer(client API, runner BatchRunner, ledger storage.Ledger, opts Options, log logger.Logger) *Consumer {
	if opts.MaxMessages <= 0 || opts.MaxMessages > 10 {
		opts.MaxMessages = 10
	}
	if opts.WaitSeconds < 0 || opts.WaitSeconds > 20 {
		opts.WaitSeconds = 20
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}
	if ledger == nil {
		ledger, _ = storage.NewLedger(storage.TypeNone, storage.Options{})
	}
	return &Consumer{client: client, runner: runner, ledger: ledger, opts: opts, log: logger.Ensure(log)}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.opts.QueueURL == "" {
		return eris.New("sqs queue url is not configured")
	}
	c.log.InfoObj("queue consumer starting", "queue", map[string]any{
		"queue_url":    c.opts.QueueURL,
		"wait_seconds": c.opts.WaitSeconds,
		"max_messages": c.opts.MaxMessages,
	})

	for {
		if ctx.Err() != nil {
			c.log.InfoObj("queue consumer exiting", "queue", map[string]any{"reason": ctx.Err().Error()})
			return nil
		}
		if _, err := c.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.ErrorObj("queue poll failed", "queue", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
			case <-time.After(c.opts.ErrorBackoff):
			}
		}
	}
}

// PollOnce receives one batch and handles it. It returns the number of messages received.
func (c *Consumer) PollOnce(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.opts.QueueURL),
		MaxNumberOfMessages: c.opts.MaxMessages,
		WaitTimeSeconds:     c.opts.WaitSeconds,
	})
	if err != nil {
		return 0, eris.Wrap(err, "receive messages")
	}
	if len(out.Messages) == 0 {
		return 0, nil
	}

	handles := make(map[string]string, len(out.Messages))
	var (
		records   []batch.Record
		completed []string
	)
	for _, m := range out.Messages {
		id := aws.ToString(m.MessageId)
		handles[id] = aws.ToString(m.ReceiptHandle)

		seen, err := c.ledger.Seen(ctx, id)
		if err != nil {
			c.log.WarnObj("ledger lookup failed", "queue", map[string]any{"message_id": id, "error": err.Error()})
		}
		if seen {
			c.log.InfoObj("skipping already delivered message", "queue", map[string]any{"message_id": id})
			completed = append(completed, id)
			continue
		}
		records = append(records, batch.Record{MessageID: id, Body: aws.ToString(m.Body)})
	}

	// processed messages must still be acknowledged after a shutdown signal
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if len(records) > 0 {
		resp := c.runner.RunSQS(ctx, records)
		for _, rec := range records {
			if resp.FailedItem(rec.MessageID) {
				continue
			}
			completed = append(completed, rec.MessageID)
			if err := c.ledger.Mark(ackCtx, rec.MessageID); err != nil {
				c.log.WarnObj("ledger mark failed", "queue", map[string]any{"message_id": rec.MessageID, "error": err.Error()})
			}
		}
	}

	if err := c.delete(ackCtx, completed, handles); err != nil {
		return len(out.Messages), err
	}
	return len(out.Messages), nil
}

func (c *Consumer) delete(ctx context.Context, ids []string, handles map[string]string) error {
	for start := 0; start < len(ids); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(ids))
		entries := make([]types.DeleteMessageBatchRequestEntry, 0, end-start)
		for i, id := range ids[start:end] {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(start + i)),
				ReceiptHandle: aws.String(handles[id]),
			})
		}

		out, err := c.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(c.opts.QueueURL),
			Entries:  entries,
		})
		if err != nil {
			return eris.Wrap(err, "delete messages")
		}
		for _, f := range out.Failed {
			c.log.WarnObj("message delete failed", "queue", map[string]any{
				"entry_id": aws.ToString(f.Id),
				"code":     aws.ToString(f.Code),
				"message":  aws.ToString(f.Message),
			})
		}
	}
	return nil
}
