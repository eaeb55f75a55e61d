package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/domain/rules"
)

type quotaPruner interface {
	DeleteBefore(ctx context.Context, cutoffDayKey string) (int64, error)
}

type pairPruner interface {
	DeleteSupersededBefore(ctx context.Context, cutoffDayKey string) (int64, error)
}

// Job prunes expired daily quota rows and superseded pair history. Current
// pair actions are never touched; they carry the dedupe guarantees.
type Job struct {
	quotas         quotaPruner
	pairs          pairPruner
	quotaRetention time.Duration
	pairRetention  time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func NewJob(quotas quotaPruner, pairs pairPruner, quotaRetention, pairRetention time.Duration, logger *zap.Logger) *Job {
	if quotaRetention <= 0 {
		quotaRetention = 30 * 24 * time.Hour
	}
	if pairRetention <= 0 {
		pairRetention = 365 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		quotas:         quotas,
		pairs:          pairs,
		quotaRetention: quotaRetention,
		pairRetention:  pairRetention,
		now:            time.Now,
		logger:         logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.quotas != nil {
		cutoff := rules.DayKey(j.now().Add(-j.quotaRetention))
		rows, err := j.quotas.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup expired quotas: %w", err)
		}
		if rows > 0 {
			j.logger.Info("cleanup expired quotas completed", zap.Int64("deleted", rows))
		}
	}

	if j.pairs != nil {
		cutoff := rules.DayKey(j.now().Add(-j.pairRetention))
		rows, err := j.pairs.DeleteSupersededBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup superseded pair actions: %w", err)
		}
		if rows > 0 {
			j.logger.Info("cleanup superseded pair actions completed", zap.Int64("deleted", rows))
		}
	}

	return nil
}
