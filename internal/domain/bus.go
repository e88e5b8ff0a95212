package domain

import (
	"context"
	"encoding/json"
)

// EventBus defines the interface for message-driven communication.
// Supports Go channels (in-process) or NATS.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, topic string, payload []byte) ([]byte, error)

	// Respond answers a message received through Request.
	Respond(ctx context.Context, msg *Message, payload []byte) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	ReplyTo   string            `json:"replyTo,omitempty"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Enabled starts the bus responder next to the HTTP server.
	Enabled bool `yaml:"enabled"`

	// Type is the bus type: "channel" or "nats"
	Type string `yaml:"type" validate:"oneof=channel nats"`

	// Channel settings
	ChannelBufferSize int `yaml:"channelBufferSize"`

	// NATS settings
	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds
}

// Bus topics.
const (
	// TopicAssessmentRequest carries request envelopes to the bus responder.
	TopicAssessmentRequest = "iris.assessment.request"

	// TopicAssessmentResult receives replies to requests published without a
	// reply subject.
	TopicAssessmentResult = "iris.assessment.result"
)

// Transport verbs. A request action maps to exactly one result action, or to
// ActionError when processing fails.
const (
	ActionPredictDryEye    = "predict_dry_eye"
	ActionHealthCheck      = "health_check"
	ActionPredictionResult = "prediction_result"
	ActionHealthResult     = "health_result"
	ActionError            = "error"
)

// Envelope is the transport-neutral request/response frame used by the
// WebSocket and bus transports.
type Envelope struct {
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action" validate:"required"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an ActionError envelope.
type ErrorData struct {
	Message string `json:"message"`
}
