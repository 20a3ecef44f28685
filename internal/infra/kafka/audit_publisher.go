package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/core/port"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
)

const schemaVersion = "1.0"

// AuditPublisher implements port.AuditSink on top of the Kafka async producer.
// Delivery is at-least-once; consumers deduplicate on event_id.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
	auditCfg config.AuditSettings
	sample   func() float64
}

// NewAuditPublisher constructs a Kafka-backed audit sink.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, auditCfg config.AuditSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{
		producer: producer,
		appCfg:   appCfg,
		auditCfg: auditCfg,
		logger:   logger,
		sample:   rand.Float64,
	}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *AuditPublisher) publish(ctx context.Context, eventID, eventType, userID, sessionID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends a security event to its type-derived topic.
func (p *AuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	payload := struct {
		UserID    string         `json:"user_id,omitempty"`
		SessionID string         `json:"session_id,omitempty"`
		At        time.Time      `json:"at"`
		Details   map[string]any `json:"details,omitempty"`
	}{
		UserID:    event.UserID,
		SessionID: event.SessionID,
		At:        event.At.UTC(),
		Details:   event.Details,
	}

	return p.publish(ctx, event.EventID, event.Type, event.UserID, event.SessionID, event.At, payload)
}

// PublishDecision sends one permission engine evaluation to the decision
// topic. Denied decisions always go out; allowed decisions are sampled per
// audit.allow_sample_rate to keep topic volume bounded under hot-path load.
func (p *AuditPublisher) PublishDecision(ctx context.Context, record domain.PermissionDecisionRecord) error {
	if record.Outcome && p.sample() >= p.auditCfg.AllowSampleRate {
		return nil
	}

	payload := struct {
		UserID         string    `json:"user_id"`
		Profession     string    `json:"profession"`
		OrganizationID *string   `json:"organization_id,omitempty"`
		Resource       string    `json:"resource"`
		Action         string    `json:"action"`
		Outcome        bool      `json:"outcome"`
		Reason         string    `json:"reason"`
		RuleTrace      []string  `json:"rule_trace,omitempty"`
		CatalogVersion string    `json:"catalog_version,omitempty"`
		At             time.Time `json:"at"`
	}{
		UserID:         record.UserID,
		Profession:     string(record.Profession),
		OrganizationID: record.OrganizationID,
		Resource:       record.Resource,
		Action:         record.Action,
		Outcome:        record.Outcome,
		Reason:         record.Reason,
		RuleTrace:      record.RuleTrace,
		CatalogVersion: record.CatalogVersion,
		At:             record.At.UTC(),
	}

	return p.publish(ctx, record.EventID, domain.AuditPermissionDecision, record.UserID, "", record.At, payload)
}

var _ port.AuditSink = (*AuditPublisher)(nil)
