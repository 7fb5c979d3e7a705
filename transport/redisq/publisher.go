package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher writes one stream to a Redis list.
type Publisher struct {
	rdb    redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *zap.Logger
	values int
}

// NewPublisher writes to key. A zero ttl keeps the keys forever.
func NewPublisher(rdb redis.UniversalClient, key string, ttl time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		rdb:    rdb,
		key:    key,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_publisher"), zap.String("key", key)),
	}
}

// Begin clears any previous stream under the key and stores the payload.
func (p *Publisher) Begin(ctx context.Context, payload demux.Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	p.values = 0
	pipe := p.rdb.TxPipeline()
	pipe.Del(ctx, p.key)
	pipe.Set(ctx, metaKey(p.key), data, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return transportErr("store payload", err)
	}
	return nil
}

// Frame appends one frame.
func (p *Publisher) Frame(ctx context.Context, f session.Frame) error {
	if err := p.push(ctx, transport.FrameMessage(f)); err != nil {
		return err
	}
	p.values += len(f.Real) + len(f.Complex)
	return nil
}

// Values returns the number of samples written since the last Begin.
func (p *Publisher) Values() int { return p.values }

// End appends the end marker.
func (p *Publisher) End(ctx context.Context) error {
	return p.push(ctx, transport.EndMessage())
}

// Fail appends an error marker so subscribers stop.
func (p *Publisher) Fail(ctx context.Context, cause error) error {
	return p.push(ctx, transport.ErrorMessage(cause))
}

func (p *Publisher) push(ctx context.Context, m transport.Message) error {
	data, err := transport.Encode(m)
	if err != nil {
		return err
	}
	if err := p.rdb.RPush(ctx, p.key, data).Err(); err != nil {
		return transportErr("push message", err)
	}
	if p.ttl > 0 {
		if err := p.rdb.Expire(ctx, p.key, p.ttl).Err(); err != nil {
			return transportErr("expire", err)
		}
	}
	return nil
}

// Publish streams the configured run of srv into the list and returns the
// number of frames written.
func (p *Publisher) Publish(ctx context.Context, srv *session.Server) (int, error) {
	payload, ok := srv.Payload()
	if !ok {
		return 0, types.NewError(types.ErrInvalidState, "session not configured")
	}
	if err := p.Begin(ctx, payload); err != nil {
		return 0, err
	}
	frames, err := srv.Stream(ctx, func(f session.Frame) error { return p.Frame(ctx, f) })
	if err != nil {
		if ferr := p.Fail(ctx, err); ferr != nil {
			p.logger.Warn("failed to publish error marker", zap.Error(ferr))
		}
		return frames, err
	}
	if err := p.End(ctx); err != nil {
		return frames, err
	}
	p.logger.Info("stream published", zap.Int("frames", frames))
	return frames, nil
}

func transportErr(op string, err error) error {
	return types.NewError(types.ErrTransport, op).WithCause(err).WithRetryable(true)
}
