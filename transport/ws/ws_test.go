package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/receptor"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(generator.DefaultRegistry(), session.Options{Logger: zaptest.NewLogger(t)}, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, h
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, wsURL(srv), DialOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWebSocket_EndToEndRun(t *testing.T) {
	srv, h := newTestServer(t)
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cli := session.NewClient(c, receptor.DefaultRegistry(), session.Options{Logger: zaptest.NewLogger(t)})
	res, err := cli.Run(ctx, session.RunRequest{
		Generator: generator.HandleCexp,
		Receptor:  receptor.HandleAccumulate,
		Overrides: map[string]any{"frame": 20, "num_samples": 55, "phase_increment": 0.01},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Cycles)
	whole := res.Receptor.(*receptor.Accumulator[complex128]).Whole()
	require.Len(t, whole, 1)
	assert.Len(t, whole[0], 55)
	assert.Equal(t, int64(1), h.Active())

	// 同一连接上的第二次运行
	_, err = cli.Choose(ctx, generator.HandleSinusoids)
	require.NoError(t, err)
	_, err = cli.Configure(ctx, map[string]any{"num_cycles": 2, "count": 4})
	require.NoError(t, err)
	res, err = cli.Retrieve(ctx, receptor.HandleAccumulate)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cycles)
	assert.Len(t, res.Receptor.(*receptor.Accumulator[float64]).Whole(), 4)
}

func TestWebSocket_AlertsAndRefusedStream(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := session.NewConfig(session.OpServiceChoice, session.ServiceChoice{ServiceChoice: generator.HandleCexp})
	require.NoError(t, err)
	info, err := c.Exchange(ctx, req)
	require.NoError(t, err)
	require.Empty(t, info.Alert)

	req, err = session.NewConfig(session.OpSet, map[string]any{"num_samples": 5})
	require.NoError(t, err)
	info, err = c.Exchange(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Error: parameter 'phase_increment' must be specified", info.Alert)

	// 被拒绝的配置之后请求数据流：服务端以 error 消息结束
	p, err := c.OpenComplex(ctx)
	require.NoError(t, err)
	_, err = p.NextBatch(ctx)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidState))
	b, err := p.NextBatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, b, "producer stays exhausted")
}

func TestWebSocket_WrongDataTypeIsProtocolViolation(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, step := range []struct {
		op     string
		params any
	}{
		{session.OpServiceChoice, session.ServiceChoice{ServiceChoice: generator.HandleCexp}},
		{session.OpSet, map[string]any{"num_samples": 5, "phase_increment": 0.1}},
	} {
		req, err := session.NewConfig(step.op, step.params)
		require.NoError(t, err)
		info, err := c.Exchange(ctx, req)
		require.NoError(t, err)
		require.Empty(t, info.Alert)
	}

	p, err := c.OpenReal(ctx)
	require.NoError(t, err)
	_, err = p.NextBatch(ctx)
	assert.True(t, types.IsProtocolViolation(err))
}

func TestHandler_RejectsNonConfigMessages(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, write(ctx, conn, transport.EndMessage()))
	msg, err := read(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, transport.KindError, msg.Type)
	assert.True(t, types.IsProtocolViolation(msg.Err()))
}

func TestHandler_OnRunReportsEachRun(t *testing.T) {
	srv, h := newTestServer(t)
	reports := make(chan RunReport, 4)
	h.OnRun(func(_ context.Context, r RunReport) { reports <- r })
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cli := session.NewClient(c, receptor.DefaultRegistry(), session.Options{Logger: zaptest.NewLogger(t)})
	_, err := cli.Run(ctx, session.RunRequest{
		Generator: generator.HandleCexp,
		Receptor:  receptor.HandleAccumulate,
		Overrides: map[string]any{"frame": 20, "num_samples": 55, "phase_increment": 0.01},
	})
	require.NoError(t, err)

	select {
	case r := <-reports:
		assert.NotEmpty(t, r.SessionID)
		assert.Equal(t, generator.HandleCexp, r.Generator)
		assert.Equal(t, "complex", string(r.DataType))
		assert.Equal(t, 6, r.Frames)
		assert.Equal(t, 55, r.Values)
		assert.NoError(t, r.Err)
		assert.False(t, r.Finished.Before(r.Started))
	case <-ctx.Done():
		t.Fatal("no run report")
	}
}

func TestHandler_ShutdownEndsOpenSessions(t *testing.T) {
	srv, h := newTestServer(t)
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cli := session.NewClient(c, nil, session.Options{})
	_, err := cli.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Active())

	require.NoError(t, h.Shutdown(ctx))
	assert.Zero(t, h.Active())

	_, err = cli.Discover(ctx)
	assert.Error(t, err, "connection closed by shutdown")

	_, err = Dial(ctx, wsURL(srv), DialOptions{})
	assert.Error(t, err, "upgrades refused after shutdown")
}

func TestHandler_ShutdownRacesWithUpgrades(t *testing.T) {
	h := NewHandler(generator.DefaultRegistry(), session.Options{}, nil)

	var wg sync.WaitGroup
	codes := make([]int, 64)
	start := make(chan struct{})
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stream", nil))
			codes[i] = rec.Code
		}(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	close(start)
	require.NoError(t, h.Shutdown(ctx))
	assert.False(t, h.admit(), "no session may start once Shutdown returned")

	wg.Wait()
	for _, code := range codes {
		// 普通 GET 不是升级请求：要么在关闭前被接纳后握手失败，要么被 503 拒绝
		assert.NotEqual(t, http.StatusOK, code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
