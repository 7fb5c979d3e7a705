package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/param"
	"github.com/BaSui01/seriesflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, params json.RawMessage) Info

// Server is the server side of one session. It is not safe for concurrent
// use; a transport drives one server per connection.
type Server struct {
	id       string
	registry *generator.Registry
	opts     Options
	logger   *zap.Logger
	handlers map[string]handlerFunc

	negotiator *param.Negotiator
	gen        generator.Generator
	handle     string
	payload    demux.Payload
	configured bool
	aborted    bool

	// 会话按值持有缓冲区，跨多次运行复用
	realBuf    buffer.BatchBuffer[float64]
	complexBuf buffer.BatchBuffer[complex128]
}

// NewServer creates a server session over the given generators.
func NewServer(registry *generator.Registry, opts Options) *Server {
	opts = opts.withDefaults()
	id := uuid.NewString()
	s := &Server{
		id:         id,
		registry:   registry,
		opts:       opts,
		logger:     opts.Logger.With(zap.String("component", "session_server"), zap.String("session_id", id)),
		negotiator: param.NewNegotiator(),
	}
	s.handlers = map[string]handlerFunc{
		OpServiceTypes:  s.handleServiceTypes,
		OpServiceChoice: s.handleServiceChoice,
		OpSet:           s.handleSet,
	}
	return s
}

// ID returns the session id.
func (s *Server) ID() string { return s.id }

// Generator returns the handle chosen by the last accepted service_choice.
func (s *Server) Generator() string { return s.handle }

// Payload returns the negotiated payload of the current run.
func (s *Server) Payload() (demux.Payload, bool) { return s.payload, s.configured }

// Dispatch answers one coordination request. Refusals are reported as
// alerts, never as errors.
func (s *Server) Dispatch(ctx context.Context, req Config) Info {
	ctx, span := s.opts.Tracer.Start(ctx, "session.dispatch",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("session.operation", req.Operation),
		),
	)
	defer span.End()

	h, ok := s.handlers[req.Operation]
	var info Info
	if !ok {
		info = alert(types.ErrUnknownOperation, fmt.Sprintf("Error: operation %s not supported", req.Operation))
	} else {
		info = h(ctx, req.Parameters)
	}

	if info.Alert != "" {
		span.SetStatus(codes.Error, info.Alert)
		s.logger.Info("request refused", zap.String("operation", req.Operation), zap.String("alert", info.Alert))
	} else {
		s.logger.Debug("request handled", zap.String("operation", req.Operation))
	}
	s.opts.Metrics.RecordOperation(req.Operation, info.Alert != "")
	return info
}

func (s *Server) handleServiceTypes(context.Context, json.RawMessage) Info {
	return respond(ServiceTypes{ServiceType: s.registry.Describe()})
}

func (s *Server) handleServiceChoice(_ context.Context, params json.RawMessage) Info {
	var choice ServiceChoice
	if err := unmarshalParams(params, &choice); err != nil {
		return alert(types.ErrInvalidArgument, "Error: malformed service choice")
	}
	g, err := s.registry.Lookup(choice.ServiceChoice)
	if err != nil {
		return alert(types.ErrUnknownGenerator, fmt.Sprintf("Time-series generator %s not available", choice.ServiceChoice))
	}

	s.gen = g
	s.handle = choice.ServiceChoice
	s.configured = false
	spec := g.Spec()
	s.negotiator.Set(spec)
	s.logger.Info("generator chosen", zap.String("generator", s.handle))
	return respond(spec)
}

func (s *Server) handleSet(_ context.Context, params json.RawMessage) Info {
	if s.gen == nil {
		return alert(types.ErrInvalidState, "Error: no time-series generator chosen")
	}
	var overrides map[string]any
	if err := unmarshalParams(params, &overrides); err != nil {
		return alert(types.ErrInvalidArgument, "Error: malformed parameters")
	}

	s.aborted = false
	if ignored := s.negotiator.Update(overrides); len(ignored) > 0 {
		s.logger.Debug("unknown parameters ignored", zap.Strings("keys", ignored))
	}
	if v := s.negotiator.Complete(); v != nil {
		s.aborted = true
		return alert(types.ErrParameterMissing, fmt.Sprintf("Error: parameter '%s' must be specified", v.Field))
	}
	if v := s.negotiator.Bounds(); v != nil {
		s.aborted = true
		return alert(types.ErrParameterOutOfBounds, fmt.Sprintf("Error: parameter %s out of bounds", v.Field))
	}
	s.negotiator.Validate()

	payload, err := s.gen.Configure(s.negotiator.Final())
	if err != nil {
		s.aborted = true
		code := types.GetErrorCode(err)
		if code == "" {
			code = types.ErrInvalidArgument
		}
		return alert(code, "Error: "+err.Error())
	}
	if err := s.rebind(); err != nil {
		s.aborted = true
		return alert(types.GetErrorCode(err), "Error: "+err.Error())
	}

	s.payload = payload
	s.configured = true
	s.logger.Info("new generator run",
		zap.String("generator", s.handle),
		zap.String("data_type", string(payload.DataType)),
		zap.Int("cycle_size", payload.CycleSize()),
	)
	return respond(payload)
}

// rebind points the matching buffer at the configured generator and clears
// it for a new run.
func (s *Server) rebind() error {
	switch g := s.gen.(type) {
	case generator.Complex:
		return bind(&s.complexBuf, generator.Pace[complex128](g, s.opts.PaceHz), s.opts)
	case generator.Real:
		return bind(&s.realBuf, generator.Pace[float64](g, s.opts.PaceHz), s.opts)
	default:
		return types.Errorf(types.ErrInvalidArgument, "generator %s produces no samples", s.handle)
	}
}

func bind[T any](b *buffer.BatchBuffer[T], p buffer.Producer[T], opts Options) error {
	if b.Stats().Capacity == 0 {
		return b.Init(p, opts.bufferOptions()...)
	}
	return b.Rebind(p)
}

// Stream sends the configured run as frames of RepeatedFieldCount samples
// (the last frame may be shorter) and returns how many frames were sent.
// It refuses to stream when the last configuration was refused.
func (s *Server) Stream(ctx context.Context, emit func(Frame) error) (int, error) {
	if s.aborted {
		return 0, types.NewError(types.ErrInvalidState, "session aborted by a refused configuration")
	}
	if !s.configured {
		return 0, types.NewError(types.ErrInvalidState, "session not configured")
	}

	ctx, span := s.opts.Tracer.Start(ctx, "session.stream",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("generator", s.handle),
			attribute.String("data_type", string(s.payload.DataType)),
		),
	)
	defer span.End()

	start := time.Now()
	var frames, values int
	var err error
	if s.payload.DataType == demux.DataComplex {
		frames, values, err = pump(ctx, &s.complexBuf, s.opts.RepeatedFieldCount, func(v []complex128) error {
			return emit(Frame{Complex: v})
		})
	} else {
		frames, values, err = pump(ctx, &s.realBuf, s.opts.RepeatedFieldCount, func(v []float64) error {
			return emit(Frame{Real: v})
		})
	}

	// 一次运行结束后（无论成败）需要重新 set 才能再次发送
	s.configured = false
	span.SetAttributes(attribute.Int("frames", frames), attribute.Int("values", values))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return frames, err
	}
	s.opts.Metrics.RecordStream("server", s.payload.DataType, frames, values, time.Since(start))
	s.logger.Info("generator run completed", zap.Int("frames", frames), zap.Int("values", values))
	return frames, nil
}

func pump[T any](ctx context.Context, b *buffer.BatchBuffer[T], n int, emit func([]T) error) (frames, values int, err error) {
	for {
		vals, err := b.Get(ctx, n)
		if err != nil {
			return frames, values, err
		}
		if len(vals) == 0 {
			return frames, values, nil
		}
		if err := emit(vals); err != nil {
			return frames, values, fmt.Errorf("emit frame: %w", err)
		}
		frames++
		values += len(vals)
	}
}

func respond(v any) Info {
	raw, err := json.Marshal(v)
	if err != nil {
		return alert(types.ErrInvalidArgument, "Error: response not encodable")
	}
	return Info{Response: raw}
}

func alert(code types.ErrorCode, msg string) Info {
	return Info{Alert: msg, Code: code}
}

func unmarshalParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
