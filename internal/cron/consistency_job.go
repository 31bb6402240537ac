package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
)

const maxReportedIDs = 20

// ConsistencyJobParams configures the invariant reconciler.
type ConsistencyJobParams struct {
	Logger     *logger.Logger
	Repository ConsistencyRepository
	Metrics    *metrics.EngineMetrics
}

// NewConsistencyJob builds the reconciler. It reports violations and never repairs them.
func NewConsistencyJob(params ConsistencyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("consistency repository required")
	}
	return &consistencyJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
	}, nil
}

type consistencyJob struct {
	logg    *logger.Logger
	repo    ConsistencyRepository
	metrics *metrics.EngineMetrics
}

func (j *consistencyJob) Name() string { return "invariant-scan" }

func (j *consistencyJob) Run(ctx context.Context) error {
	scans := map[string]func(context.Context) ([]uuid.UUID, error){
		ViolationActiveWithoutUser:      j.repo.ActiveWithoutUser,
		ViolationRetiredWithUser:        j.repo.RetiredWithUser,
		ViolationUserWithoutAssignment:  j.repo.UserWithoutOpenAssignment,
		ViolationAssignmentWithoutUser:  j.repo.OpenAssignmentWithoutUser,
		ViolationMultipleOpenAssignment: j.repo.MultipleOpenAssignments,
	}

	var errs error
	total := 0
	for _, kind := range ViolationKinds {
		ids, err := scans[kind](ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scan %s: %w", kind, err))
			continue
		}
		total += len(ids)
		j.metrics.SetViolations(kind, len(ids))
		if len(ids) > 0 {
			j.report(ctx, kind, ids)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"violations": total})
	if total == 0 && errs == nil {
		j.logg.Info(logCtx, "invariant scan clean")
	} else {
		j.logg.Info(logCtx, "invariant scan complete")
	}
	return errs
}

func (j *consistencyJob) report(ctx context.Context, kind string, ids []uuid.UUID) {
	sample := ids
	if len(sample) > maxReportedIDs {
		sample = sample[:maxReportedIDs]
	}
	reported := make([]string, 0, len(sample))
	for _, id := range sample {
		reported = append(reported, id.String())
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"kind":      kind,
		"count":     len(ids),
		"asset_ids": reported,
	})
	j.logg.Warn(logCtx, "invariant violation detected")
}
