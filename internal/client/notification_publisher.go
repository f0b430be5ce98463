package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes workflow events to NATS for the
// notification delivery service.
//
// Subject convention: notifications.ideas.<event_type>
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so notification failures never interrupt workflow operations.
// Each publish carries a short timeout; on timeout the event is logged as
// undelivered and dropped.
type NotificationPublisher struct {
	conn    *nats.Conn
	timeout time.Duration
	log     zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS. Message holds the
// rendered bilingual text; Context carries the raw placeholder values for
// downstream systems that re-render.
type NotificationEvent struct {
	EventType  string           `json:"event_type"`
	Recipients []string         `json:"recipients"`
	Message    *RenderedMessage `json:"message,omitempty"`
	Context    map[string]any   `json:"context,omitempty"`
	SentAt     time.Time        `json:"sent_at"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection. A nil connection disables publishing.
func NewNotificationPublisher(conn *nats.Conn, timeout time.Duration, log zerolog.Logger) *NotificationPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NotificationPublisher{conn: conn, timeout: timeout, log: log}
}

// Send implements service.Notifier. Subject: notifications.ideas.<eventType>.
func (p *NotificationPublisher) Send(ctx context.Context, eventType string, recipients []string, payload map[string]any) {
	if p.conn == nil {
		return
	}
	if len(recipients) == 0 {
		return
	}

	event := &NotificationEvent{
		EventType:  eventType,
		Recipients: recipients,
		Context:    payload,
		SentAt:     time.Now(),
	}
	if msg, ok := Render(eventType, payload); ok {
		event.Message = &msg
	} else {
		p.log.Warn().Str("event_type", eventType).Msg("notification: no template for event type")
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.ideas.%s", eventType)
	if err := p.publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Msg("notification: failed to publish event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}

func (p *NotificationPublisher) publish(ctx context.Context, subject string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.conn.Publish(subject, data) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
