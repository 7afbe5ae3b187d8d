package quizme

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// EventType names a quiz lifecycle event.
type EventType string

const (
	EventQuizStarted   EventType = "quiz.started"
	EventQuizCompleted EventType = "quiz.completed"
)

// QuizEvent is the JSON body of a lifecycle message. SessionKey is the hashed
// session id, never the raw one.
type QuizEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SessionKey string    `json:"sessionKey"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Fallback   bool      `json:"fallback,omitempty"`
	Review     bool      `json:"review,omitempty"`
	At         time.Time `json:"at"`
}

// EventPublisher sends QuizEvents to one topic.
type EventPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewEventPublisher(publisher message.Publisher, topic string) *EventPublisher {
	return &EventPublisher{publisher: publisher, topic: topic}
}

// NewGoChannelPubSub creates an in-process pub/sub. Events published on it are
// dropped unless something subscribes.
func NewGoChannelPubSub(verbose bool) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(verbose, false))
}

// NewKafkaPublisher creates a Kafka-backed watermill publisher.
func NewKafkaPublisher(brokers []string, verbose bool) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewStdLogger(verbose, false))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return publisher, nil
}

// Topic returns the topic events go to.
func (p *EventPublisher) Topic() string {
	return p.topic
}

// Publish sends event, filling in its id and timestamp when missing.
func (p *EventPublisher) Publish(event QuizEvent) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal quiz event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("timestamp", event.At.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	VerboseLog("published quiz event", "type", event.Type, "topic", p.topic, "session", event.SessionKey)
	return nil
}

func (p *EventPublisher) Close() error {
	if p == nil || p.publisher == nil {
		return nil
	}
	return p.publisher.Close()
}

// eventsFor derives lifecycle events from one transition.
func eventsFor(sessionKey string, res Result) []QuizEvent {
	var events []QuizEvent
	switch res.Kind {
	case KindQuizStarted:
		events = append(events, QuizEvent{
			Type:       EventQuizStarted,
			SessionKey: sessionKey,
			Total:      res.Total,
			Fallback:   res.Fallback,
		})
	case KindQuizCompleted:
		events = append(events, QuizEvent{
			Type:       EventQuizCompleted,
			SessionKey: sessionKey,
			Score:      res.Score,
			Total:      res.Total,
			Percentage: res.Percentage,
			Review:     res.Reviewing,
		})
		if res.ReviewStarted {
			events = append(events, QuizEvent{
				Type:       EventQuizStarted,
				SessionKey: sessionKey,
				Total:      res.ReviewTotal,
				Review:     true,
			})
		}
	}
	return events
}
