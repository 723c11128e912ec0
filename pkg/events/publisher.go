package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-engine/pkg/config"
)

// Domain event types emitted by the engine.
const (
	EnrollmentCreated  = "enrollment.created"
	EnrollmentDropped  = "enrollment.dropped"
	EnrollmentApproved = "enrollment.approved"
	EnrollmentRejected = "enrollment.rejected"
	GradeRecorded      = "grade.recorded"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher serialises domain events onto a watermill publisher.
// A nil *Publisher is valid and drops every event.
type Publisher struct {
	pub    message.Publisher
	sub    message.Subscriber
	prefix string
	logger *zap.Logger
}

// New builds a publisher for the configured driver. It returns nil when events are disabled.
func New(cfg config.EventsConfig, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := NewZapAdapter(logger)
	switch cfg.Driver {
	case config.EventsDriverGoChannel:
		bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, adapter)
		p := NewWithPublisher(bus, cfg.TopicPrefix, logger)
		p.sub = bus
		return p, nil
	case config.EventsDriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka events driver requires KAFKA_BROKERS")
		}
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, adapter)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		return NewWithPublisher(pub, cfg.TopicPrefix, logger), nil
	default:
		return nil, nil
	}
}

// NewWithPublisher wraps an existing watermill publisher.
func NewWithPublisher(pub message.Publisher, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{pub: pub, prefix: strings.Trim(prefix, "."), logger: logger}
}

// Topic maps an event type onto its broker topic.
func (p *Publisher) Topic(eventType string) string {
	if p == nil || p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish encodes payload and sends it to the topic for eventType.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if p == nil || p.pub == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	raw, err := json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: body})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.Metadata.Set("event_type", eventType)
	msg.SetContext(ctx)
	if err := p.pub.Publish(p.Topic(eventType), msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Subscribe exposes the in-process bus for local consumers. Only the gochannel driver supports it.
func (p *Publisher) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	if p == nil || p.sub == nil {
		return nil, fmt.Errorf("events driver does not support local subscriptions")
	}
	return p.sub.Subscribe(ctx, p.Topic(eventType))
}

// Close releases broker connections.
func (p *Publisher) Close() error {
	if p == nil || p.pub == nil {
		return nil
	}
	return p.pub.Close()
}
