package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, channel and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Channel        string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err as non-retryable.
func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry publishing every asset event on the configured channel.
func NewEventRegistry(cfg config.EventingConfig) (*EventRegistry, error) {
	if cfg.Channel == "" {
		return nil, fmt.Errorf("events channel is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventAssetRegistered,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetRegisteredEvent{} },
		},
		{
			EventType:      enums.EventAssetStatusChanged,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventAssetAssigned,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetAssignedEvent{} },
		},
		{
			EventType:      enums.EventAssetUnassigned,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetUnassignedEvent{} },
		},
		{
			EventType:      enums.EventPoNumberMigrated,
			AggregateType:  enums.AggregatePurchaseOrder,
			PayloadFactory: func() interface{} { return &payloads.PoNumberMigratedEvent{} },
		},
	} {
		desc.Channel = cfg.Channel
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(trimmed, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
