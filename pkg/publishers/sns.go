package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/awsconfig"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher broadcasts outcome events on a topic; subscribers can filter on
// the status and source attributes.
type snsPublisher struct {
	id       string
	topicARN string
	client   snsClient
	log      Logger
}

func newSNSPublisher(ctx context.Context, t Target, log Logger) (Publisher, error) {
	if t.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", t.ID)
	}
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: t.SNS.Region, Endpoint: t.SNS.Endpoint})
	if err != nil {
		return nil, err
	}
	return &snsPublisher{
		id:       t.ID,
		topicARN: t.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }

func (s *snsPublisher) Publish(ctx context.Context, evt OutcomeEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}

	in := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(body)),
		Subject:           aws.String("profile " + evt.Status()),
		MessageAttributes: map[string]types.MessageAttributeValue{},
	}
	for k, v := range eventAttributes(evt) {
		in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	if isFIFO(s.topicARN) {
		in.MessageGroupId = aws.String(evt.NodeID)
		in.MessageDeduplicationId = aws.String(evt.ID)
	}

	out, err := s.client.Publish(ctx, in)
	if err != nil {
		s.log.ErrorObj("outcome not broadcast", "publisher_sns_error", map[string]any{
			"publisher_id": s.id,
			"node_id":      evt.NodeID,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish outcome to sns: %w", err)
	}
	s.log.DebugObj("outcome broadcast", "publisher_sns_delivery", map[string]any{
		"publisher_id": s.id,
		"node_id":      evt.NodeID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
