package history

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/seriesflow/internal/database"
	"github.com/BaSui01/seriesflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultListLimit is used when a filter sets no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page.
	MaxListLimit = 500

	recordRetries = 3
)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Generator string
	SessionID string
	Role      Role
	Status    Status
	Since     time.Time
	Limit     int
}

// GeneratorSummary aggregates runs per generator.
type GeneratorSummary struct {
	Generator string `json:"generator"`
	Runs      int64  `gorm:"column:run_count" json:"runs"`
	Failed    int64  `gorm:"column:failed_count" json:"failed"`
	Values    int64  `gorm:"column:value_total" json:"values"`
}

// Store persists run records. The runs table must already be migrated.
type Store struct {
	pool   *database.PoolManager
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a store over pool.
func NewStore(pool *database.PoolManager, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool:   pool,
		logger: logger.With(zap.String("component", "history")),
		now:    time.Now,
	}
}

// Record inserts run, assigning a RunID when it has none. Lock contention is
// retried.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return types.NewError(types.ErrInvalidArgument, "run is nil")
	}
	if run.Role == "" || run.Status == "" {
		return types.NewError(types.ErrInvalidArgument, "run role and status are required")
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	err := s.pool.WithTransactionRetry(ctx, recordRetries, func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return types.NewError(types.ErrStorage, "record run").WithCause(err)
	}

	s.logger.Debug("run recorded",
		zap.String("run_id", run.RunID),
		zap.String("session_id", run.SessionID),
		zap.String("role", string(run.Role)),
		zap.String("status", string(run.Status)),
	)
	return nil
}

// Get returns the run with the given RunID.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.pool.DB().WithContext(ctx).Where("run_id = ?", runID).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.Errorf(types.ErrNotFound, "run %s not found", runID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "get run").WithCause(err)
	}
	return &run, nil
}

// List returns matching runs, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	q := s.pool.DB().WithContext(ctx).Model(&Run{})
	if f.Generator != "" {
		q = q.Where("generator = ?", f.Generator)
	}
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.Role != "" {
		q = q.Where("role = ?", string(f.Role))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.Since.IsZero() {
		q = q.Where("started_at >= ?", f.Since.UTC())
	}

	runs := []Run{}
	if err := q.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, types.NewError(types.ErrStorage, "list runs").WithCause(err)
	}
	return runs, nil
}

// Summaries aggregates all runs per generator, ordered by generator.
func (s *Store) Summaries(ctx context.Context) ([]GeneratorSummary, error) {
	out := []GeneratorSummary{}
	err := s.pool.DB().WithContext(ctx).Model(&Run{}).
		Select("generator, COUNT(*) AS run_count, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed_count, "+
			"COALESCE(SUM(value_count), 0) AS value_total", string(StatusFailed)).
		Group("generator").
		Order("generator").
		Scan(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "summarize runs").WithCause(err)
	}
	return out, nil
}

// Prune deletes runs that started before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.pool.DB().WithContext(ctx).Where("started_at < ?", cutoff.UTC()).Delete(&Run{})
	if res.Error != nil {
		return 0, types.NewError(types.ErrStorage, "prune runs").WithCause(res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("runs pruned", zap.Int64("count", res.RowsAffected), zap.Time("cutoff", cutoff))
	}
	return res.RowsAffected, nil
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
