package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/types"
	"github.com/redis/go-redis/v9"
)

// ReadPayload fetches the payload stored by Publisher.Begin.
func ReadPayload(ctx context.Context, rdb redis.UniversalClient, key string) (demux.Payload, error) {
	data, err := rdb.Get(ctx, metaKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return demux.Payload{}, types.Errorf(types.ErrTransport, "no stream published under %s", key).WithRetryable(true)
	}
	if err != nil {
		return demux.Payload{}, transportErr("read payload", err)
	}
	var p demux.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return demux.Payload{}, types.NewProtocolError("malformed payload").WithCause(err)
	}
	if err := p.Validate(); err != nil {
		return demux.Payload{}, err
	}
	return p, nil
}

// Subscriber reads a published stream. It implements session.Transport but
// has no coordination phase.
type Subscriber struct {
	rdb     redis.UniversalClient
	key     string
	timeout time.Duration
}

var _ session.Transport = (*Subscriber)(nil)

// NewSubscriber reads from key, waiting at most timeout for each message.
func NewSubscriber(rdb redis.UniversalClient, key string, timeout time.Duration) *Subscriber {
	return &Subscriber{rdb: rdb, key: key, timeout: timeout}
}

// Exchange is not supported.
func (s *Subscriber) Exchange(context.Context, session.Config) (session.Info, error) {
	return session.Info{}, types.NewError(types.ErrInvalidState, "redis streams are configured by the publisher")
}

// OpenReal returns a producer of real samples.
func (s *Subscriber) OpenReal(context.Context) (buffer.Producer[float64], error) {
	return &Producer[float64]{rdb: s.rdb, key: s.key, timeout: s.timeout}, nil
}

// OpenComplex returns a producer of complex samples.
func (s *Subscriber) OpenComplex(context.Context) (buffer.Producer[complex128], error) {
	return &Producer[complex128]{rdb: s.rdb, key: s.key, timeout: s.timeout}, nil
}

// Producer pops frames from the list until the end marker.
type Producer[T float64 | complex128] struct {
	rdb     redis.UniversalClient
	key     string
	timeout time.Duration
	done    bool
}

// NewProducer reads from key directly.
func NewProducer[T float64 | complex128](rdb redis.UniversalClient, key string, timeout time.Duration) *Producer[T] {
	return &Producer[T]{rdb: rdb, key: key, timeout: timeout}
}

// NextBatch blocks for the next frame. A timeout is a retryable transport
// error; buffered values are unaffected.
func (p *Producer[T]) NextBatch(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	res, err := p.rdb.BLPop(ctx, p.timeout, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, types.Errorf(types.ErrTransport, "no frame within %s", p.timeout).WithRetryable(true)
	}
	if err != nil {
		return nil, transportErr("pop frame", err)
	}
	if len(res) != 2 {
		return nil, types.NewProtocolError("unexpected BLPOP reply of %d elements", len(res))
	}

	msg, err := transport.Decode([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case transport.KindSample:
		return transport.Batch[T](msg)
	case transport.KindEnd:
		p.done = true
		return nil, nil
	case transport.KindError:
		p.done = true
		return nil, msg.Err()
	default:
		return nil, types.NewProtocolError("unexpected message %q", msg.Type)
	}
}
