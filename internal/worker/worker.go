// Package worker answers assessment envelopes arriving on the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/healthcatchers/iris/internal/assessment"
	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/metrics"
)

// Dispatcher answers one request envelope with exactly one reply envelope.
// *assessment.Service implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.Envelope) domain.Envelope
}

// Worker subscribes to request topics and replies through the bus.
type Worker struct {
	bus        domain.EventBus
	dispatcher Dispatcher
	metrics    *metrics.Metrics

	mu            sync.RWMutex
	stopped       bool
	subscriptions []domain.Subscription
	inflight      sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// Topics to answer; empty means TopicAssessmentRequest.
	Topics []string

	// ResultTopic receives replies for messages without a reply subject;
	// empty means TopicAssessmentResult.
	ResultTopic string
}

// NewWorker creates a new bus responder. m may be nil.
func NewWorker(bus domain.EventBus, dispatcher Dispatcher, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        bus,
		dispatcher: dispatcher,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to every configured topic.
func (w *Worker) Start(cfg Config) error {
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = []string{domain.TopicAssessmentRequest}
	}
	resultTopic := cfg.ResultTopic
	if resultTopic == "" {
		resultTopic = domain.TopicAssessmentResult
	}

	for _, topic := range topics {
		sub, err := w.bus.Subscribe(w.ctx, topic, func(ctx context.Context, msg *domain.Message) error {
			return w.handleMessage(ctx, resultTopic, msg)
		})
		if err != nil {
			return err
		}

		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()

		slog.Info("worker subscribed",
			"topic", topic,
			"result_topic", resultTopic,
		)
	}

	return nil
}

// handleMessage dispatches one envelope and sends the reply to the message's
// reply subject, or to resultTopic when it has none.
func (w *Worker) handleMessage(ctx context.Context, resultTopic string, msg *domain.Message) error {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return nil
	}
	w.inflight.Add(1)
	w.mu.RUnlock()
	defer w.inflight.Done()

	start := time.Now()

	var reply domain.Envelope
	var req domain.Envelope
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Warn("failed to parse request envelope",
			"message_id", msg.ID,
			"error", err,
		)
		reply = assessment.ErrorEnvelope("", "invalid JSON message")
	} else {
		reply = w.dispatcher.Dispatch(ctx, req)
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	if msg.ReplyTo != "" {
		err = w.bus.Respond(ctx, msg, payload)
	} else {
		err = w.bus.Publish(ctx, resultTopic, payload)
	}
	if err != nil {
		w.metrics.TransportError("bus")
		slog.Error("failed to send reply",
			"message_id", msg.ID,
			"request_id", reply.ID,
			"error", err,
		)
		return err
	}
	w.metrics.BusReply(reply.Action)

	slog.Debug("request answered",
		"message_id", msg.ID,
		"request_id", reply.ID,
		"action", reply.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes and waits for in-flight requests to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	w.stopped = true
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	w.inflight.Wait()
	w.cancel()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
