package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/awsconfig"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher queues outcome events. FIFO queues are grouped by node so
// outcomes for one node stay ordered.
type sqsPublisher struct {
	id       string
	queueURL string
	client   sqsClient
	log      Logger
}

func newSQSPublisher(ctx context.Context, t Target, log Logger) (Publisher, error) {
	if t.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", t.ID)
	}
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: t.SQS.Region, Endpoint: t.SQS.Endpoint})
	if err != nil {
		return nil, err
	}
	return &sqsPublisher{
		id:       t.ID,
		queueURL: t.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *sqsPublisher) ID() string   { return s.id }
func (s *sqsPublisher) Type() string { return TypeSQS }

func (s *sqsPublisher) Publish(ctx context.Context, evt OutcomeEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{},
	}
	for k, v := range eventAttributes(evt) {
		in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	if isFIFO(s.queueURL) {
		in.MessageGroupId = aws.String(evt.NodeID)
		in.MessageDeduplicationId = aws.String(evt.ID)
	}

	out, err := s.client.SendMessage(ctx, in)
	if err != nil {
		s.log.ErrorObj("outcome not queued", "publisher_sqs_error", map[string]any{
			"publisher_id": s.id,
			"node_id":      evt.NodeID,
			"error":        err.Error(),
		})
		return fmt.Errorf("send outcome to sqs: %w", err)
	}
	s.log.DebugObj("outcome queued", "publisher_sqs_delivery", map[string]any{
		"publisher_id": s.id,
		"node_id":      evt.NodeID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

// isFIFO reports whether a queue URL or topic ARN names a FIFO resource.
func isFIFO(name string) bool {
	return strings.HasSuffix(name, ".fifo")
}
