package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/internal/database"
	"github.com/BaSui01/seriesflow/internal/migration"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func openPool(t *testing.T, migrate bool) *database.PoolManager {
	t.Helper()
	cfg := config.DefaultDatabaseConfig()
	cfg.Name = filepath.Join(t.TempDir(), "runs.db")
	if migrate {
		_, err := migration.Up(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
	}
	pool, err := database.Open(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newTestStore(t *testing.T) *Store {
	return NewStore(openPool(t, true), zaptest.NewLogger(t))
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(gen string, offset time.Duration, status Status) *Run {
	return &Run{
		SessionID:  "session-" + gen,
		Role:       RoleClient,
		Generator:  gen,
		Transport:  "ws",
		DataType:   string(demux.DataReal),
		Cycles:     3,
		ValueCount: 30,
		Status:     status,
		StartedAt:  t0.Add(offset),
		FinishedAt: t0.Add(offset + time.Second),
	}
}

func TestStore_RecordAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("cexp", 0, StatusCompleted)
	require.NoError(t, s.Record(ctx, run))
	require.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.ID)

	got, err := s.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.SessionID, got.SessionID)
	assert.Equal(t, RoleClient, got.Role)
	assert.Equal(t, int64(30), got.ValueCount)
	assert.True(t, got.StartedAt.Equal(t0))
	assert.Equal(t, time.Second, got.Duration())

	_, err = s.Get(ctx, "missing")
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}

func TestStore_RecordValidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.True(t, types.IsErrorCode(s.Record(ctx, nil), types.ErrInvalidArgument))
	assert.True(t, types.IsErrorCode(s.Record(ctx, &Run{Status: StatusCompleted}), types.ErrInvalidArgument))

	// 未设置时间时使用当前时间
	s.now = func() time.Time { return t0 }
	run := &Run{SessionID: "s", Role: RoleServer, Status: StatusCompleted}
	require.NoError(t, s.Record(ctx, run))
	assert.True(t, run.FinishedAt.Equal(t0))
	assert.True(t, run.StartedAt.Equal(t0))
}

func TestStore_RecordWithoutTableFails(t *testing.T) {
	s := NewStore(openPool(t, false), zap.NewNop())
	err := s.Record(context.Background(), sampleRun("cexp", 0, StatusCompleted))
	assert.True(t, types.IsErrorCode(err, types.ErrStorage))
}

func TestStore_ListFiltersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, sampleRun("cexp", 0, StatusCompleted)))
	require.NoError(t, s.Record(ctx, sampleRun("sinusoids", time.Minute, StatusFailed)))
	require.NoError(t, s.Record(ctx, sampleRun("cexp", 2*time.Minute, StatusCompleted)))
	server := sampleRun("iq_matrix", 3*time.Minute, StatusCompleted)
	server.Role = RoleServer
	require.NoError(t, s.Record(ctx, server))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "iq_matrix", all[0].Generator)
	assert.Equal(t, "cexp", all[3].Generator)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by generator", Filter{Generator: "cexp"}, 2},
		{"by role", Filter{Role: RoleServer}, 1},
		{"by status", Filter{Status: StatusFailed}, 1},
		{"by session", Filter{SessionID: "session-sinusoids"}, 1},
		{"since", Filter{Since: t0.Add(time.Minute)}, 3},
		{"limit", Filter{Limit: 2}, 2},
		{"no match", Filter{Generator: "square"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, runs, tt.want)
		})
	}
}

func TestStore_Summaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, sampleRun("cexp", 0, StatusCompleted)))
	require.NoError(t, s.Record(ctx, sampleRun("cexp", time.Minute, StatusFailed)))
	require.NoError(t, s.Record(ctx, sampleRun("sinusoids", 0, StatusCompleted)))

	sums, err := s.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []GeneratorSummary{
		{Generator: "cexp", Runs: 2, Failed: 1, Values: 60},
		{Generator: "sinusoids", Runs: 1, Failed: 0, Values: 30},
	}, sums)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, sampleRun("cexp", 0, StatusCompleted)))
	require.NoError(t, s.Record(ctx, sampleRun("cexp", time.Hour, StatusCompleted)))

	n, err := s.Prune(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	require.NoError(t, s.Ping(ctx))
}

func TestClientRun(t *testing.T) {
	res := session.Result{
		SessionID: "abc",
		Generator: "cexp",
		Payload:   demux.Payload{DataType: demux.DataComplex},
		Cycles:    3,
		Demux:     demux.Stats{Cycles: 3, Partial: 1},
		Buffer:    buffer.Stats{Delivered: 55},
	}
	run := ClientRun(res, "ws", t0, t0.Add(time.Second), nil)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "complex", run.DataType)
	assert.Equal(t, int64(55), run.ValueCount)
	assert.Equal(t, 1, run.Partial)

	failed := ClientRun(session.Result{}, "redis", t0, t0, types.NewError(types.ErrTransport, "connection refused"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "TRANSPORT", failed.ErrorCode)
	assert.Contains(t, failed.ErrorMessage, "connection refused")

	plain := ClientRun(session.Result{}, "local", t0, t0, errors.New("boom"))
	assert.Empty(t, plain.ErrorCode)
}

func TestServerRun(t *testing.T) {
	run := ServerRun(RolePublisher, StreamRun{
		SessionID: "s1",
		Generator: "sinusoids",
		Transport: "redis",
		DataType:  demux.DataReal,
		Frames:    8,
		Values:    80,
		Started:   t0,
		Finished:  t0.Add(time.Second),
	})
	assert.Equal(t, RolePublisher, run.Role)
	assert.Equal(t, 8, run.Frames)
	assert.Equal(t, int64(80), run.ValueCount)
	assert.Equal(t, StatusCompleted, run.Status)
}
