package session

import (
	"context"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
	"github.com/BaSui01/seriesflow/receptor"
	"github.com/BaSui01/seriesflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Coordinator carries coordination requests to a server.
type Coordinator interface {
	Exchange(ctx context.Context, req Config) (Info, error)
}

// StreamOpener starts the stream phase and returns a producer of the
// received samples. The producer returns an empty batch once the server has
// finished, and on every later call.
type StreamOpener interface {
	OpenReal(ctx context.Context) (buffer.Producer[float64], error)
	OpenComplex(ctx context.Context) (buffer.Producer[complex128], error)
}

// Transport is a Coordinator that can also open streams.
type Transport interface {
	Coordinator
	StreamOpener
}

// RunRequest describes a complete client run.
type RunRequest struct {
	Generator string
	Receptor  string
	Overrides map[string]any
}

// Result summarizes a retrieved stream.
type Result struct {
	SessionID string
	Generator string
	Payload   demux.Payload
	Cycles    int
	Demux     demux.Stats
	Buffer    buffer.Stats
	// Receptor is the receptor that consumed the stream, for example a
	// *receptor.Accumulator[float64].
	Receptor any
}

// Client is the client side of one session.
type Client struct {
	id        string
	transport Transport
	receptors *receptor.Registry
	opts      Options
	logger    *zap.Logger

	negotiator *param.Negotiator
	generator  string
	payload    demux.Payload
	configured bool

	realBuf    buffer.BatchBuffer[float64]
	complexBuf buffer.BatchBuffer[complex128]
}

// NewClient creates a client session over t.
func NewClient(t Transport, receptors *receptor.Registry, opts Options) *Client {
	opts = opts.withDefaults()
	if receptors == nil {
		receptors = receptor.DefaultRegistry()
	}
	id := uuid.NewString()
	return &Client{
		id:         id,
		transport:  t,
		receptors:  receptors,
		opts:       opts,
		logger:     opts.Logger.With(zap.String("component", "session_client"), zap.String("session_id", id)),
		negotiator: param.NewNegotiator(),
	}
}

// ID returns the session id.
func (c *Client) ID() string { return c.id }

// Negotiator exposes the client-side parameter state.
func (c *Client) Negotiator() *param.Negotiator { return c.negotiator }

func (c *Client) exchange(ctx context.Context, op string, params any) (Info, error) {
	req, err := NewConfig(op, params)
	if err != nil {
		return Info{}, err
	}
	info, err := c.transport.Exchange(ctx, req)
	if err != nil {
		return Info{}, err
	}
	if err := info.Err(); err != nil {
		c.logger.Warn("alert from server", zap.String("operation", op), zap.String("alert", info.Alert))
		return info, err
	}
	return info, nil
}

// Discover lists the generators the server offers, handle → description.
func (c *Client) Discover(ctx context.Context) (map[string]string, error) {
	info, err := c.exchange(ctx, OpServiceTypes, map[string]any{})
	if err != nil {
		return nil, err
	}
	var st ServiceTypes
	if err := info.Decode(&st); err != nil {
		return nil, err
	}
	return st.ServiceType, nil
}

// Choose selects a generator and loads its parameter schema.
func (c *Client) Choose(ctx context.Context, handle string) (param.Spec, error) {
	info, err := c.exchange(ctx, OpServiceChoice, ServiceChoice{ServiceChoice: handle})
	if err != nil {
		return param.Spec{}, err
	}
	var spec param.Spec
	if err := info.Decode(&spec); err != nil {
		return param.Spec{}, err
	}
	c.negotiator.Set(spec)
	c.generator = handle
	c.configured = false
	return spec, nil
}

// Configure applies overrides to the defaults, sends the final values and
// returns the negotiated payload. Server alerts are returned as typed errors.
func (c *Client) Configure(ctx context.Context, overrides map[string]any) (demux.Payload, error) {
	if c.negotiator.State() == param.StateUnset {
		return demux.Payload{}, types.NewError(types.ErrInvalidState, "no generator chosen")
	}
	if ignored := c.negotiator.Update(overrides); len(ignored) > 0 {
		c.logger.Warn("parameters not offered by generator ignored", zap.Strings("keys", ignored))
	}

	c.configured = false
	info, err := c.exchange(ctx, OpSet, c.negotiator.Final())
	if err != nil {
		return demux.Payload{}, err
	}
	var payload demux.Payload
	if err := info.Decode(&payload); err != nil {
		return demux.Payload{}, err
	}
	if err := payload.Validate(); err != nil {
		return demux.Payload{}, err
	}
	c.negotiator.Validate()
	c.payload = payload
	c.configured = true
	c.logger.Info("configured",
		zap.String("generator", c.generator),
		zap.String("data_type", string(payload.DataType)),
		zap.Int("series", len(payload.ArrayShapes)),
	)
	return payload, nil
}

// Retrieve opens the stream for the negotiated data type, rebuilds the
// series and pumps them into the named receptor.
func (c *Client) Retrieve(ctx context.Context, receptorHandle string) (Result, error) {
	if !c.configured {
		return Result{}, types.NewError(types.ErrInvalidState, "session not configured")
	}

	ctx, span := c.opts.Tracer.Start(ctx, "session.retrieve",
		trace.WithAttributes(
			attribute.String("session.id", c.id),
			attribute.String("generator", c.generator),
			attribute.String("receptor", receptorHandle),
			attribute.String("data_type", string(c.payload.DataType)),
		),
	)
	defer span.End()

	res := Result{SessionID: c.id, Generator: c.generator, Payload: c.payload}
	start := time.Now()
	var err error
	switch c.payload.DataType {
	case demux.DataComplex:
		var rec demux.Receptor[complex128]
		if rec, err = c.receptors.Complex(receptorHandle, c.opts.Logger); err != nil {
			break
		}
		res.Receptor = rec
		err = retrieve(ctx, c, &c.complexBuf, c.transport.OpenComplex, rec, &res)
	case demux.DataReal:
		var rec demux.Receptor[float64]
		if rec, err = c.receptors.Real(receptorHandle, c.opts.Logger); err != nil {
			break
		}
		res.Receptor = rec
		err = retrieve(ctx, c, &c.realBuf, c.transport.OpenReal, rec, &res)
	default:
		err = types.NewProtocolError("unknown data type %q", c.payload.DataType)
	}

	span.SetAttributes(attribute.Int("cycles", res.Cycles))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	c.configured = false
	c.opts.Metrics.RecordStream("client", c.payload.DataType, res.Cycles, res.Buffer.Delivered, time.Since(start))
	c.logger.Info("time series retrieved", zap.Int("cycles", res.Cycles), zap.Int("partial", res.Demux.Partial))
	return res, nil
}

// Consume retrieves a stream whose payload was negotiated elsewhere, for
// transports without a coordination phase.
func (c *Client) Consume(ctx context.Context, payload demux.Payload, receptorHandle string) (Result, error) {
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	c.payload = payload
	c.configured = true
	return c.Retrieve(ctx, receptorHandle)
}

func retrieve[T any](
	ctx context.Context,
	c *Client,
	buf *buffer.BatchBuffer[T],
	open func(context.Context) (buffer.Producer[T], error),
	rec demux.Receptor[T],
	res *Result,
) error {
	p, err := open(ctx)
	if err != nil {
		return err
	}
	if err := bind(buf, p, c.opts); err != nil {
		return err
	}
	d := demux.New[T](buf, demux.WithShrinkPolicy(c.opts.ShrinkPolicy), demux.WithLogger(c.opts.Logger))
	if err := d.Configure(c.payload.ArrayShapes); err != nil {
		return err
	}
	res.Cycles, err = demux.Pump(ctx, d, rec)
	res.Demux = d.Stats()
	res.Buffer = buf.Stats()
	return err
}

// Run performs discover, choose, configure and retrieve in order.
func (c *Client) Run(ctx context.Context, req RunRequest) (Result, error) {
	ctx, span := c.opts.Tracer.Start(ctx, "session.run",
		trace.WithAttributes(attribute.String("session.id", c.id), attribute.String("generator", req.Generator)),
	)
	defer span.End()

	offered, err := c.Discover(ctx)
	if err != nil {
		return Result{}, err
	}
	if _, ok := offered[req.Generator]; !ok {
		return Result{}, types.Errorf(types.ErrUnknownGenerator, "chosen generator %s not available", req.Generator)
	}
	if _, err := c.Choose(ctx, req.Generator); err != nil {
		return Result{}, err
	}
	if _, err := c.Configure(ctx, req.Overrides); err != nil {
		return Result{}, err
	}
	return c.Retrieve(ctx, req.Receptor)
}
