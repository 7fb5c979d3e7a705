package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/internal/tlsutil"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// DialOptions configures Dial.
type DialOptions struct {
	Header http.Header
	Logger *zap.Logger
	// ReadLimit caps the size of one message; zero keeps the library default.
	ReadLimit int64
}

// Client is the client end of a websocket session. Requests are strictly
// sequential: one exchange or one stream at a time.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger
	mu     sync.Mutex
	closed bool
}

var _ session.Transport = (*Client)(nil)

// Dial connects to a session endpoint such as ws://host:8080/v1/stream.
func Dial(ctx context.Context, url string, opts DialOptions) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: opts.Header,
		HTTPClient: tlsutil.HTTPClient(url, 0),
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransport, fmt.Sprintf("websocket dial %s", url)).WithCause(err).WithRetryable(true)
	}
	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, logger: logger.With(zap.String("component", "ws_client"))}, nil
}

// Exchange sends one coordination request and waits for the answer.
func (c *Client) Exchange(ctx context.Context, req session.Config) (session.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(ctx, transport.ConfigMessage(req)); err != nil {
		return session.Info{}, err
	}
	msg, err := read(ctx, c.conn)
	if err != nil {
		return session.Info{}, err
	}
	switch msg.Type {
	case transport.KindInfo:
		return *msg.Info, nil
	case transport.KindError:
		return session.Info{}, msg.Err()
	default:
		return session.Info{}, errUnexpected(msg.Type)
	}
}

// OpenReal requests the stream and returns a producer of real samples.
func (c *Client) OpenReal(ctx context.Context) (buffer.Producer[float64], error) {
	return open[float64](ctx, c)
}

// OpenComplex requests the stream and returns a producer of complex samples.
func (c *Client) OpenComplex(ctx context.Context) (buffer.Producer[complex128], error) {
	return open[complex128](ctx, c)
}

func open[T float64 | complex128](ctx context.Context, c *Client) (*streamProducer[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := session.NewConfig(session.OpGet, nil)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, transport.ConfigMessage(req)); err != nil {
		return nil, err
	}
	return &streamProducer[T]{client: c}, nil
}

func (c *Client) send(ctx context.Context, m transport.Message) error {
	if c.closed {
		return types.NewError(types.ErrTransport, "connection closed")
	}
	return write(ctx, c.conn, m)
}

// Close ends the session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// streamProducer reads sample messages until the end marker, then returns
// an empty batch forever.
type streamProducer[T float64 | complex128] struct {
	client *Client
	done   bool
}

// NextBatch returns the next received batch.
func (p *streamProducer[T]) NextBatch(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	msg, err := read(ctx, p.client.conn)
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
		return nil, errUnexpected(msg.Type)
	}
}
