package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/models"
)

type EventConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// NewEventConsumer initializes the Pulsar client and consumer.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   3,
			DeadLetterTopic: topic + "-dlq",
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{client: client, consumer: consumer}, nil
}

// ReceiveMessage retrieves a message from Pulsar.
func (c *EventConsumer) ReceiveMessage(ctx context.Context) (pulsar.Message, error) {
	msg, err := c.consumer.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}
	return msg, nil
}

// Ack acknowledges a message.
func (c *EventConsumer) Ack(msg pulsar.Message) error {
	return c.consumer.Ack(msg)
}

// Nack negatively acknowledges a message.
func (c *EventConsumer) Nack(msg pulsar.Message) {
	c.consumer.Nack(msg)
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}

// StepsMessage is the payload of a step-ingestion message.
type StepsMessage struct {
	UserID *string `json:"user_id"`
	Steps  *int    `json:"steps"`
}

// DecodeStepsMessage parses and validates a step-ingestion payload.
func DecodeStepsMessage(payload []byte) (string, int, error) {
	var msg StepsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", 0, apperr.Validation("invalid steps message: %v", err)
	}
	userID, err := models.MemberRequest{UserID: msg.UserID}.User()
	if err != nil {
		return "", 0, err
	}
	steps, err := models.StepsRequest{Steps: msg.Steps}.Delta()
	if err != nil {
		return "", 0, err
	}
	return userID, steps, nil
}
