package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/BaSui01/seriesflow/internal/history"
	"github.com/BaSui01/seriesflow/types"
	"go.uber.org/zap"
)

// RunStore 运行记录的只读视图
type RunStore interface {
	List(ctx context.Context, f history.Filter) ([]history.Run, error)
	Get(ctx context.Context, runID string) (*history.Run, error)
	Summaries(ctx context.Context) ([]history.GeneratorSummary, error)
}

// RunHandler 暴露运行历史
type RunHandler struct {
	store  RunStore
	logger *zap.Logger
}

// NewRunHandler 创建运行历史处理器
func NewRunHandler(store RunStore, logger *zap.Logger) *RunHandler {
	return &RunHandler{store: store, logger: logger}
}

// HandleList 处理 GET /v1/runs
//
// 查询参数: generator, session_id, role, status, since (RFC3339), limit
func (h *RunHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseRunFilter(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	runs, err := h.store.List(r.Context(), f)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, runs)
}

// HandleGet 处理 GET /v1/runs/{run_id}
func (h *RunHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.Get(r.Context(), r.PathValue("run_id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, run)
}

// HandleSummary 处理 GET /v1/runs/summary，按生成器汇总
func (h *RunHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sums, err := h.store.Summaries(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, sums)
}

func parseRunFilter(r *http.Request) (history.Filter, error) {
	q := r.URL.Query()
	f := history.Filter{
		Generator: q.Get("generator"),
		SessionID: q.Get("session_id"),
		Role:      history.Role(q.Get("role")),
		Status:    history.Status(q.Get("status")),
	}

	switch f.Role {
	case "", history.RoleClient, history.RoleServer, history.RolePublisher:
	default:
		return f, types.Errorf(types.ErrInvalidArgument, "unknown role %q", f.Role).WithField("role")
	}
	switch f.Status {
	case "", history.StatusCompleted, history.StatusFailed:
	default:
		return f, types.Errorf(types.ErrInvalidArgument, "unknown status %q", f.Status).WithField("status")
	}

	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, types.NewError(types.ErrInvalidArgument, "since must be RFC3339").WithField("since")
		}
		f.Since = t
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, types.NewError(types.ErrInvalidArgument, "limit must be a positive integer").WithField("limit")
		}
		f.Limit = n
	}
	return f, nil
}
