package demux

import (
	"github.com/BaSui01/seriesflow/types"
)

// DataType names the value type carried by a stream.
type DataType string

const (
	DataReal    DataType = "real"
	DataComplex DataType = "complex"
)

// Payload is the configuration a generator announces after negotiation:
// which value type it streams and the shapes of the multiplexed series.
type Payload struct {
	DataType    DataType `json:"data_type"`
	ArrayShapes []Shape  `json:"array_shapes"`
}

// Validate checks the payload received from the other side.
func (p Payload) Validate() error {
	switch p.DataType {
	case DataReal, DataComplex:
	default:
		return types.NewProtocolError("unknown data type %q", p.DataType).WithField("data_type")
	}
	if len(p.ArrayShapes) == 0 {
		return types.NewProtocolError("no array shapes announced").WithField("array_shapes")
	}
	if _, err := cycleSize(p.ArrayShapes); err != nil {
		return types.NewProtocolError("array shapes are invalid").WithField("array_shapes").WithCause(err)
	}
	return nil
}

// CycleSize returns the number of values in one full cycle.
func (p Payload) CycleSize() int {
	n := 0
	for _, s := range p.ArrayShapes {
		n += s.Size()
	}
	return n
}
