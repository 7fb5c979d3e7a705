package receptor

import (
	"github.com/BaSui01/seriesflow/demux"
	"go.uber.org/zap"
)

// Log records a summary of every cycle and the totals at the end.
type Log[T any] struct {
	logger *zap.Logger
	cycles int
	values int
}

// NewLog returns a logging receptor.
func NewLog[T any](logger *zap.Logger) *Log[T] {
	return &Log[T]{logger: nopIfNil(logger).With(zap.String("component", "receptor_log"))}
}

// Receive logs one line per cycle.
func (l *Log[T]) Receive(arrays []demux.Array[T]) error {
	if len(arrays) == 0 {
		l.logger.Info("time series received",
			zap.Int("cycles", l.cycles),
			zap.Int("values", l.values),
		)
		return nil
	}
	shapes := make([]string, len(arrays))
	for i, a := range arrays {
		shapes[i] = a.Shape.String()
		l.values += a.Len()
	}
	l.cycles++
	l.logger.Debug("cycle", zap.Int("cycle", l.cycles), zap.Strings("shapes", shapes))
	return nil
}

// Totals returns the cycles and values seen so far.
func (l *Log[T]) Totals() (cycles, values int) { return l.cycles, l.values }
