package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-456")}, nil
}

func sampleEvent() OutcomeEvent {
	return NewOutcomeEvent("run-1", SourceSQS, domain.Job{NodeID: "n1", UserID: "u1"},
		domain.Outcome{Success: true, NewlyScraped: true})
}

func TestSQSPublisherSendsEventWithAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	require.NotNil(t, client.input)
	assert.Equal(t, "https://example.com/queue", aws.ToString(client.input.QueueUrl))
	assert.Contains(t, aws.ToString(client.input.MessageBody), `"node_id":"n1"`)
	assert.Contains(t, aws.ToString(client.input.MessageBody), `"newly_scraped":true`)

	attr, ok := client.input.MessageAttributes["status"]
	require.True(t, ok)
	assert.Equal(t, "String", aws.ToString(attr.DataType))
	assert.Equal(t, "scraped", aws.ToString(attr.StringValue))
	assert.Equal(t, "u1", aws.ToString(client.input.MessageAttributes["user_id"].StringValue))
}

func TestSQSPublisherError(t *testing.T) {
	pub := &sqsPublisher{id: "q", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	assert.Error(t, pub.Publish(context.Background(), sampleEvent()))
}

func TestSNSPublisherSendsEvent(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "t", topicARN: "arn:aws:sns:::topic", client: client, log: noopLogger{}}

	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	require.NotNil(t, client.input)
	assert.Equal(t, "arn:aws:sns:::topic", aws.ToString(client.input.TopicArn))
	assert.Contains(t, aws.ToString(client.input.Message), `"run_id":"run-1"`)
	assert.Equal(t, "n1", aws.ToString(client.input.MessageAttributes["node_id"].StringValue))
}

func TestSNSPublisherError(t *testing.T) {
	pub := &snsPublisher{id: "t", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	assert.Error(t, pub.Publish(context.Background(), sampleEvent()))
}

func TestFIFODestinationsGroupByNode(t *testing.T) {
	evt := sampleEvent()

	sqsClient := &fakeSQSClient{}
	q := &sqsPublisher{id: "q", queueURL: "https://sqs.us-east-1.amazonaws.com/000000000000/outcomes.fifo", client: sqsClient, log: noopLogger{}}
	require.NoError(t, q.Publish(context.Background(), evt))
	assert.Equal(t, "n1", aws.ToString(sqsClient.input.MessageGroupId))
	assert.Equal(t, evt.ID, aws.ToString(sqsClient.input.MessageDeduplicationId))

	snsClient := &fakeSNSClient{}
	topic := &snsPublisher{id: "t", topicARN: "arn:aws:sns:us-east-1:000000000000:outcomes.fifo", client: snsClient, log: noopLogger{}}
	require.NoError(t, topic.Publish(context.Background(), evt))
	assert.Equal(t, "n1", aws.ToString(snsClient.input.MessageGroupId))
	assert.Equal(t, "profile scraped", aws.ToString(snsClient.input.Subject))

	plain := &fakeSQSClient{}
	require.NoError(t, (&sqsPublisher{id: "p", queueURL: "https://example.com/queue", client: plain, log: noopLogger{}}).Publish(context.Background(), evt))
	assert.Nil(t, plain.input.MessageGroupId)
}
