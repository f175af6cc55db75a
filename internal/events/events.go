package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
)

type EventType string

const (
	GroupCreated  EventType = "group.created"
	GroupDeleted  EventType = "group.deleted"
	MemberAdded   EventType = "member.added"
	MemberRemoved EventType = "member.removed"
	StepsLogged   EventType = "steps.logged"
	StepsReset    EventType = "steps.reset"
)

// Event describes a committed change to users or groups.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	Steps     int       `json:"steps,omitempty"`
	Period    string    `json:"period,omitempty"` // daily or weekly, for resets
	Timestamp int64     `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, userID, groupID string) Event {
	return Event{Type: t, UserID: userID, GroupID: groupID, Timestamp: time.Now().UTC().Unix()}
}

// key orders events of one user (or group) on the same partition.
func (e Event) key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.GroupID
}

// Notifier publishes domain events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close()
}

type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

// NewEventPublisher initializes the Pulsar client and producer.
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	return &EventPublisher{
		client:   client,
		producer: producer,
	}, nil
}

// Notify publishes an event to Pulsar
func (p *EventPublisher) Notify(ctx context.Context, event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize event payload: %w", err)
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Key:     event.key(),
		Payload: message,
	})
	if err != nil {
		return fmt.Errorf("could not send event to Pulsar: %w", err)
	}
	return nil
}

// Close closes the Pulsar producer and client
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
}

// NopNotifier drops every event. It is used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

func (NopNotifier) Close() {}
