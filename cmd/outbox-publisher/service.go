package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 5 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond

	resultPublished = "published"
	resultFailed    = "failed"
	resultTerminal  = "terminal"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type publisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Message is what subscribers receive on the events channel.
type Message struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	AggregateType string                 `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	CreatedAt     time.Time              `json:"created_at"`
	Envelope      outbox.PayloadEnvelope `json:"envelope"`
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Publisher  publisher
	Repository outboxRepository
	Registry   registryResolver
	Metrics    *metrics.EngineMetrics
}

type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	publisher    publisher
	registry     registryResolver
	metrics      *metrics.EngineMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	wait         func(context.Context, time.Duration) error
}

// batchResult summarizes one poll. Failed counts rows left for a later retry.
type batchResult struct {
	processed bool
	failed    int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		publisher:    params.Publisher,
		registry:     params.Registry,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		wait:         sleepContext,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "redis", s.publisher.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		result, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
		}
		// Failed rows are fetched again on the next poll, so back off before retrying them.
		if err != nil || result.failed > 0 {
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.wait(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if result.processed {
			continue
		}
		if err := s.wait(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch publishes one batch inside a transaction. A row that fails to publish is
// marked and skipped so later rows still go out.
func (s *Service) processBatch(ctx context.Context) (batchResult, error) {
	var result batchResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		result.processed = true
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if markErr := s.handleTerminal(ctx, tx, event, err, s.eventFields(event, nil)); markErr != nil {
					return markErr
				}
				continue
			}

			fields := s.eventFields(event, resolved)
			receivers, err := s.publish(ctx, event, resolved)
			if err != nil {
				var nonRetry registry.NonRetryableError
				if errors.As(err, &nonRetry) {
					if markErr := s.handleTerminal(ctx, tx, event, err, fields); markErr != nil {
						return markErr
					}
					continue
				}

				nextAttempt := event.AttemptCount + 1
				fields["attempt_count"] = nextAttempt
				if nextAttempt >= s.maxAttempts {
					fields["terminal_reason"] = "max_attempts"
					if markErr := s.handleTerminal(ctx, tx, event, fmt.Errorf("max publish attempts reached: %w", err), fields); markErr != nil {
						return markErr
					}
					continue
				}

				logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
				s.logg.Warn(logCtx, "outbox publish failed")
				if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
				}
				s.metrics.IncPublished(resultFailed)
				result.failed++
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.metrics.IncPublished(resultPublished)
			fields["receivers"] = receivers
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		}
		return nil
	})
	return result, err
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, err error, fields map[string]any) error {
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(logCtx, "outbox event will not be retried")

	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	s.metrics.IncPublished(resultTerminal)
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (int64, error) {
	channel := resolved.Descriptor.Channel
	if channel == "" {
		return 0, registry.NewNonRetryableError(fmt.Errorf("no channel configured for %s", event.EventType))
	}

	payload, err := json.Marshal(Message{
		EventID:       resolved.Envelope.EventID,
		EventType:     string(event.EventType),
		AggregateType: string(event.AggregateType),
		AggregateID:   event.AggregateID.String(),
		CreatedAt:     event.CreatedAt.UTC(),
		Envelope:      resolved.Envelope,
	})
	if err != nil {
		return 0, registry.NewNonRetryableError(fmt.Errorf("encode message: %w", err))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.publisher.Publish(publishCtx, channel, payload)
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
		if resolved.Descriptor.Channel != "" {
			fields["channel"] = resolved.Descriptor.Channel
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
