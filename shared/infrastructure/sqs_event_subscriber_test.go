package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSQS struct {
	mu       sync.Mutex
	pending  []types.Message
	deleted  []string
	extended []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	msgs := f.pending
	f.pending = nil
	f.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extended = append(f.extended, aws.ToString(in.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) snapshot() (deleted, extended []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deleted...), append([]string{}, f.extended...)
}

func sqsBody(t *testing.T, topic string, payload interface{}) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(snsMessage{
		ID:          models.GenerateUUID().String(),
		AggregateID: models.GenerateUUID().String(),
		Topic:       topic,
		Version:     "1.0",
		Payload:     raw,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)
	return string(body)
}

func TestDecodeMessageBody(t *testing.T) {
	tests := []struct {
		name          string
		body          func(t *testing.T) string
		expectedTopic string
		expectedError string
	}{
		{
			name: "raw delivery",
			body: func(t *testing.T) string {
				return sqsBody(t, events.SagaStepCompletedEvent, map[string]string{"step_id": "s-1"})
			},
			expectedTopic: events.SagaStepCompletedEvent,
		},
		{
			name: "sns notification envelope",
			body: func(t *testing.T) string {
				envelope, err := json.Marshal(map[string]string{
					"Type":    "Notification",
					"Message": sqsBody(t, events.SagaStepFailedEvent, map[string]string{"error": "boom"}),
				})
				require.NoError(t, err)
				return string(envelope)
			},
			expectedTopic: events.SagaStepFailedEvent,
		},
		{
			name:          "malformed json",
			body:          func(t *testing.T) string { return "{not json" },
			expectedError: "failed to decode message body",
		},
		{
			name:          "missing topic",
			body:          func(t *testing.T) string { return `{"id":"x","payload":{}}` },
			expectedError: "invalid topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodeMessageBody(tt.body(t))

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTopic, event.EventType)
			assert.NotNil(t, event.Metadata)
		})
	}
}

func TestSQSEventSubscriber_DeliversAndAcknowledges(t *testing.T) {
	client := &fakeSQS{
		pending: []types.Message{
			{
				MessageId:     aws.String("m-1"),
				ReceiptHandle: aws.String("ok-handle"),
				Body:          aws.String(sqsBody(t, events.SagaStepCompletedEvent, map[string]string{"step_id": "s-1"})),
			},
			{
				MessageId:     aws.String("m-2"),
				ReceiptHandle: aws.String("fail-handle"),
				Body:          aws.String(sqsBody(t, events.SagaStepFailedEvent, map[string]string{"step_id": "s-2"})),
			},
			{
				MessageId:     aws.String("m-3"),
				ReceiptHandle: aws.String("foreign-handle"),
				Body:          aws.String(sqsBody(t, "wallet.debited", map[string]string{})),
			},
		},
	}

	var mu sync.Mutex
	var handled []string
	handler := NewEventHandlerFunc("test", func(_ context.Context, event *events.Event) error {
		mu.Lock()
		handled = append(handled, event.EventType)
		mu.Unlock()
		if event.EventType == events.SagaStepFailedEvent {
			return errors.New("database unavailable")
		}
		return nil
	})

	subscriber := NewSQSEventSubscriber(client, "queue", handler,
		WithWorkers(2),
		WithTopics(events.Topic("saga.step.*")),
		WithSubscriberLogger(zap.NewNop()),
	)
	require.NoError(t, subscriber.Start(context.Background()))

	assert.Eventually(t, func() bool {
		deleted, extended := client.snapshot()
		return len(deleted) == 2 && len(extended) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, subscriber.Stop(ctx))

	deleted, extended := client.snapshot()
	assert.ElementsMatch(t, []string{"ok-handle", "foreign-handle"}, deleted)
	assert.Equal(t, []string{"fail-handle"}, extended)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{events.SagaStepCompletedEvent, events.SagaStepFailedEvent}, handled)
}
