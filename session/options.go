package session

import (
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/seriesflow/session"

// DefaultRepeatedFieldCount is the number of samples per streamed message.
const DefaultRepeatedFieldCount = 10

// Metrics receives session events.
type Metrics interface {
	RecordOperation(op string, alerted bool)
	RecordStream(role string, dataType demux.DataType, messages, values int, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, bool)                                  {}
func (nopMetrics) RecordStream(string, demux.DataType, int, int, time.Duration) {}

// Options configures server and client sessions.
type Options struct {
	InitialCapacity    int
	GrowthFactor       float64
	RepeatedFieldCount int
	ShrinkPolicy       demux.ShrinkPolicy
	PaceHz             float64

	Logger         *zap.Logger
	Tracer         trace.Tracer
	Metrics        Metrics
	BufferObserver buffer.Observer
}

func (o Options) withDefaults() Options {
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = buffer.DefaultInitialCapacity
	}
	if o.GrowthFactor <= 1 {
		o.GrowthFactor = buffer.DefaultGrowthFactor
	}
	if o.RepeatedFieldCount <= 0 {
		o.RepeatedFieldCount = DefaultRepeatedFieldCount
	}
	if o.ShrinkPolicy == "" {
		o.ShrinkPolicy = demux.ShrinkLeading
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(instrumentationName)
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	return o
}

func (o Options) bufferOptions() []buffer.Option {
	opts := []buffer.Option{
		buffer.WithInitialCapacity(o.InitialCapacity),
		buffer.WithGrowthFactor(o.GrowthFactor),
		buffer.WithLogger(o.Logger),
	}
	if o.BufferObserver != nil {
		opts = append(opts, buffer.WithObserver(o.BufferObserver))
	}
	return opts
}
