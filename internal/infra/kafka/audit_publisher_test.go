package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
	"github.com/Habibmosta/juristdz-sub017/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer, sampleRate float64) *AuditPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "jurist",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewAuditPublisher(producer, config.AppSettings{
		Name: "iam-gatekeeper",
		Env:  "test",
	}, config.AuditSettings{AllowSampleRate: sampleRate}, zaptest.NewLogger(t))
}

func TestPublishAuditEvent(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer, 1.0)

	lockedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.AuditEvent{
		EventID:   "event-123",
		Type:      domain.AuditAccountLocked,
		UserID:    "user-789",
		SessionID: "session-456",
		At:        lockedAt,
		Details:   map[string]any{"failed_attempts": 5},
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "jurist.iam.account.locked" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != domain.AuditAccountLocked {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		if got := envelope["session_id"]; got != event.SessionID {
			t.Fatalf("unexpected session_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}

		if timestamp != lockedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		details, ok := payload["details"].(map[string]any)
		if !ok {
			t.Fatalf("details not a map: %T", payload["details"])
		}

		attempts, ok := details["failed_attempts"].(float64)
		if !ok || int(attempts) != 5 {
			t.Fatalf("details did not round-trip: %v", details)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}

		if envelopeMetadata["service"] != "iam-gatekeeper" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}

		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishAuditEventGeneratesEventID(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer, 1.0)

	event := domain.AuditEvent{
		Type:   domain.AuditLoginFailed,
		UserID: "user-1",
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		eventID, ok := envelope["event_id"].(string)
		if !ok || eventID == "" {
			t.Fatalf("expected generated event_id, got %v", envelope["event_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishDecisionDeniedAlwaysPublished(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer, 0.0)
	publisher.sample = func() float64 { return 0.99 }

	decidedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	orgID := "org-7"
	record := domain.PermissionDecisionRecord{
		EventID:        "evt-001",
		UserID:         "user-123",
		Profession:     domain.ProfessionNotary,
		OrganizationID: &orgID,
		Resource:       "case_file",
		Action:         "delete",
		Outcome:        false,
		Reason:         "explicit_deny",
		RuleTrace:      []string{"base:notary", "deny:org-7"},
		At:             decidedAt,
	}

	if err := publisher.PublishDecision(context.Background(), record); err != nil {
		t.Fatalf("PublishDecision returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "jurist.iam.permission.decision" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["profession"]; got != string(domain.ProfessionNotary) {
			t.Fatalf("unexpected profession: %v", got)
		}

		if got := payload["organization_id"]; got != orgID {
			t.Fatalf("unexpected organization_id: %v", got)
		}

		outcome, ok := payload["outcome"].(bool)
		if !ok || outcome {
			t.Fatalf("unexpected outcome: %v", payload["outcome"])
		}

		if got := payload["reason"]; got != "explicit_deny" {
			t.Fatalf("unexpected reason: %v", got)
		}

		trace, ok := payload["rule_trace"].([]any)
		if !ok || len(trace) != 2 {
			t.Fatalf("unexpected rule_trace: %v", payload["rule_trace"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishDecisionAllowedSampledOut(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer, 0.1)
	publisher.sample = func() float64 { return 0.5 }

	record := domain.PermissionDecisionRecord{
		UserID:     "user-123",
		Profession: domain.ProfessionLawyer,
		Resource:   "case_file",
		Action:     "read",
		Outcome:    true,
		Reason:     "base_permission",
		At:         time.Now().UTC(),
	}

	if err := publisher.PublishDecision(context.Background(), record); err != nil {
		t.Fatalf("PublishDecision returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		t.Fatalf("expected sampled-out decision to be dropped, got message on topic %s", msg.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDecisionAllowedSampledIn(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer, 0.5)
	publisher.sample = func() float64 { return 0.1 }

	record := domain.PermissionDecisionRecord{
		UserID:     "user-123",
		Profession: domain.ProfessionLawyer,
		Resource:   "case_file",
		Action:     "read",
		Outcome:    true,
		Reason:     "base_permission",
		At:         time.Now().UTC(),
	}

	if err := publisher.PublishDecision(context.Background(), record); err != nil {
		t.Fatalf("PublishDecision returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "jurist.iam.permission.decision" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}
