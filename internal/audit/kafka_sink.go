package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pramaan/internal/platform/kafka"
)

// KafkaSink publishes audit events to a Kafka topic, keyed by identity so
// per-identity ordering holds within a partition.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

type kafkaPayload struct {
	Timestamp      string `json:"timestamp"`
	Action         string `json:"action"`
	IdentityID     string `json:"identityId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Decision       string `json:"decision,omitempty"`
	Reason         string `json:"reason,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	ActorID        string `json:"actorId,omitempty"`
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	if !event.IdentityID.IsNil() {
		payload.IdentityID = event.IdentityID.String()
	}
	if !event.OrganizationID.IsNil() {
		payload.OrganizationID = event.OrganizationID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	var key []byte
	if !event.IdentityID.IsNil() {
		key = []byte(event.IdentityID.String())
	}
	return s.producer.Produce(ctx, key, value)
}
