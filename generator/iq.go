package generator

import (
	"context"
	"math"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
)

// HandleIQMatrix is the registry handle of the I/Q matrix generator.
const HandleIQMatrix = "iq_matrix"

// IQMatrixParams are the resolved parameters of IQMatrix.
type IQMatrixParams struct {
	NumFrames int     `json:"num_frames"`
	Frame     int     `json:"frame"`
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Decay     float64 `json:"decay"`
}

// IQMatrix emits, per cycle, a frame x 2 matrix of in-phase and quadrature
// samples (row-major, one row per sample) followed by the frame-long
// envelope of the same samples.
type IQMatrix struct {
	params IQMatrixParams
	run    run
}

// NewIQMatrix returns an unconfigured generator.
func NewIQMatrix() *IQMatrix { return &IQMatrix{} }

// Spec returns the parameter schema.
func (g *IQMatrix) Spec() param.Spec {
	return param.Spec{
		Generator:   HandleIQMatrix,
		Description: "generator returns a decaying rotating phasor as an I/Q matrix plus its envelope",
		Fields: []param.Field{
			{Name: "num_frames", Description: "number of frames to generate", Required: true, Minimum: param.Bound(1)},
			{Name: "frame", Description: "samples per frame", Default: 16, Minimum: param.Bound(1)},
			{Name: "frequency", Description: "rotation in cycles per sample", Default: 0.05, Minimum: param.Bound(-0.5), Maximum: param.Bound(0.5)},
			{Name: "amplitude", Description: "initial amplitude", Default: 1.0, Minimum: param.Bound(0)},
			{Name: "decay", Description: "exponential decay per sample", Default: 0.0, Minimum: param.Bound(0), Maximum: param.Bound(1)},
		},
	}
}

// Configure decodes values and restarts the run.
func (g *IQMatrix) Configure(values map[string]any) (demux.Payload, error) {
	var p IQMatrixParams
	if err := param.Decode(values, &p); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("num_frames", p.NumFrames); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("frame", p.Frame); err != nil {
		return demux.Payload{}, err
	}
	g.params = p
	g.run.start(p.NumFrames)
	return demux.Payload{
		DataType:    demux.DataReal,
		ArrayShapes: []demux.Shape{{p.Frame, 2}, {p.Frame}},
	}, nil
}

// Params returns the resolved parameters of the current run.
func (g *IQMatrix) Params() IQMatrixParams { return g.params }

// NextBatch returns the next cycle.
func (g *IQMatrix) NextBatch(ctx context.Context) ([]float64, error) {
	frame, n, err := g.run.next(ctx, 1)
	if err != nil || n == 0 {
		return nil, err
	}
	p := g.params
	iq := make([]float64, 0, 2*p.Frame)
	env := make([]float64, 0, p.Frame)
	for i := 0; i < p.Frame; i++ {
		t := float64(frame*p.Frame + i)
		a := p.Amplitude * math.Exp(-p.Decay*t)
		s, c := math.Sincos(2 * math.Pi * p.Frequency * t)
		iq = append(iq, a*c, a*s)
		env = append(env, a)
	}
	return append(iq, env...), nil
}
