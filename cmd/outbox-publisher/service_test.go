package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/registry"
)

func assetEvent(t *testing.T, eventID string) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventAssetAssigned,
		AggregateType: enums.AggregateAsset,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		CreatedAt:     time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{assetEvent(t, "event-one"), assetEvent(t, "event-two")}}
	pub := &fakePublisher{errs: []error{errors.New("transient"), nil}}
	service := newTestService(t, repo, pub, channelRegistry("assettrack:events"), nil)

	result, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !result.processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 || result.failed != 1 {
		t.Fatalf("unexpected number of failed rows: %d (reported %d)", got, result.failed)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServicePublishesMessageOnChannel(t *testing.T) {
	event := assetEvent(t, "evt-1")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, pub, channelRegistry("assettrack:events"), nil)
	service.metrics = metrics.NewEngineMetrics(reg)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one publish got %d", len(pub.sent))
	}
	sent := pub.sent[0]
	if sent.channel != "assettrack:events" {
		t.Fatalf("unexpected channel %q", sent.channel)
	}
	var msg Message
	if err := json.Unmarshal(sent.payload, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.EventID != "evt-1" || msg.EventType != string(enums.EventAssetAssigned) || msg.AggregateID != event.AggregateID.String() {
		t.Fatalf("unexpected message %+v", msg)
	}
	if got := publishedCount(t, reg, resultPublished); got != 1 {
		t.Fatalf("expected published counter 1 got %v", got)
	}
}

func publishedCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "assettrack_outbox_publish_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestServiceParksUnresolvableRows(t *testing.T) {
	event := assetEvent(t, "bad")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	resolver := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	service := newTestService(t, repo, &fakePublisher{}, resolver, nil)

	result, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !result.processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked, got %v", repo.terminal)
	}
	if result.failed != 0 {
		t.Fatalf("parked rows are not retried, got %d failed", result.failed)
	}
	if repo.terminalAttempts != 5 {
		t.Fatalf("expected row parked at attempt cap 5 got %d", repo.terminalAttempts)
	}
}

func TestServiceParksRowAtMaxAttempts(t *testing.T) {
	event := assetEvent(t, "max-attempts")
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("connection reset")}}
	service := newTestService(t, repo, pub, channelRegistry("assettrack:events"), &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no retryable failure recorded got %d", len(repo.failed))
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected row parked at max attempts got %v", repo.terminal)
	}
}

func TestRunBacksOffWhileRowsKeepFailing(t *testing.T) {
	event := assetEvent(t, "redis-down")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{alwaysErr: errors.New("connection refused")}
	service := newTestService(t, repo, pub, channelRegistry("assettrack:events"), &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var waits []time.Duration
	service.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 4 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run got %v", err)
	}
	if pub.attempts != 4 {
		t.Fatalf("expected one publish per poll got %d", pub.attempts)
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("row must not be parked before max attempts, got %v", repo.terminal)
	}
	if repo.events[0].AttemptCount != 4 {
		t.Fatalf("expected 4 recorded attempts got %d", repo.events[0].AttemptCount)
	}
	floor := 100 * time.Millisecond
	for i, d := range waits {
		floor *= 2
		if d < floor || d >= floor+jitterWindow {
			t.Fatalf("wait %d: expected backoff in [%s, %s) got %s", i, floor, floor+jitterWindow, d)
		}
	}
}

func TestRunResetsBackoffAfterCleanBatch(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{assetEvent(t, "flaky")}}
	pub := &fakePublisher{errs: []error{errors.New("timeout")}}
	service := newTestService(t, repo, pub, channelRegistry("assettrack:events"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var waits []time.Duration
	service.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run got %v", err)
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected the retry to publish got %d", len(repo.published))
	}
	// First wait follows the failure, the second is the idle poll after the queue drained.
	if waits[0] < 200*time.Millisecond || waits[1] >= 100*time.Millisecond+jitterWindow {
		t.Fatalf("unexpected waits %v", waits)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	if got := nextBackoff(0, base, maxBackoff); got != time.Second {
		t.Fatalf("expected 1s got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap %s got %s", maxBackoff, got)
	}
}

func TestNewServiceRequiresPublisher(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		DB:         &fakeDB{},
		Repository: &fakeRepo{},
		Registry:   &fakeRegistry{},
	})
	if err == nil {
		t.Fatalf("expected error without publisher")
	}
}

func channelRegistry(channel string) registryResolver {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventAssetAssigned,
			AggregateType: enums.AggregateAsset,
			Channel:       channel,
		},
	}}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, resolver registryResolver, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: outboxCfg},
		Logger:     logg,
		DB:         &fakeDB{},
		Publisher:  pub,
		Repository: repo,
		Registry:   resolver,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	done := make(map[uuid.UUID]bool, len(f.published)+len(f.terminal))
	for _, id := range append(append([]uuid.UUID{}, f.published...), f.terminal...) {
		done[id] = true
	}
	var pending []models.OutboxEvent
	for _, event := range f.events {
		if !done[event.ID] {
			pending = append(pending, event)
		}
	}
	return pending, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].AttemptCount++
		}
	}
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	errs      []error
	alwaysErr error
	attempts  int
	sent      []sentMessage
}

func (f *fakePublisher) Ping(context.Context) error {
	return nil
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.attempts++
	if f.alwaysErr != nil {
		return 0, f.alwaysErr
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, sentMessage{channel: channel, payload: payload})
	return 1, nil
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	resolved := *f.resolved
	resolved.Envelope = envelope
	return &resolved, f.err
}
