package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/masdar-tech/be-ideas-workflow/internal/service"
)

const auditSubject = "audit.ideas.fact"

// AuditPublisher ships workflow audit facts to NATS for the central audit
// trail. Like notifications, audit publishes are best-effort: the durable
// record of every stage change is the transition log in the database, so a
// failed publish is logged and dropped.
type AuditPublisher struct {
	conn    *nats.Conn
	timeout time.Duration
	log     zerolog.Logger
}

// NewAuditPublisher creates a publisher backed by the given NATS connection.
// A nil connection disables publishing.
func NewAuditPublisher(conn *nats.Conn, timeout time.Duration, log zerolog.Logger) *AuditPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AuditPublisher{conn: conn, timeout: timeout, log: log}
}

type auditEnvelope struct {
	RequestID    string         `json:"request_id"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actor_id"`
	StatusBefore string         `json:"status_before,omitempty"`
	StatusAfter  string         `json:"status_after,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// Append implements service.Auditor.
func (p *AuditPublisher) Append(ctx context.Context, fact service.AuditFact) {
	if p.conn == nil {
		return
	}

	data, err := json.Marshal(auditEnvelope{
		RequestID:    fact.RequestID,
		Action:       string(fact.Action),
		ActorID:      fact.ActorID,
		StatusBefore: string(fact.StatusBefore),
		StatusAfter:  string(fact.StatusAfter),
		Metadata:     fact.Metadata,
		RecordedAt:   time.Now(),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("request_id", fact.RequestID).Msg("audit: failed to marshal fact")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.conn.Publish(auditSubject, data) }()

	select {
	case err := <-done:
		if err != nil {
			p.log.Warn().Err(err).Str("request_id", fact.RequestID).Msg("audit: failed to publish fact (non-fatal)")
		}
	case <-ctx.Done():
		p.log.Warn().Err(ctx.Err()).Str("request_id", fact.RequestID).Msg("audit: publish timed out (non-fatal)")
	}
}
