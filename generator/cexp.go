package generator

import (
	"context"
	"math"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
)

// HandleCexp is the registry handle of the complex exponential generator.
const HandleCexp = "cexp"

// CexpParams are the resolved parameters of Cexp.
type CexpParams struct {
	NumSamples     int     `json:"num_samples"`
	Frame          int     `json:"frame"`
	PhaseInitial   float64 `json:"phase_initial"`
	PhaseIncrement float64 `json:"phase_increment"`
}

// Cexp generates samples of exp(j*2*pi*(phase_initial + phase_increment*t)).
type Cexp struct {
	params CexpParams
	run    run
}

// NewCexp returns an unconfigured generator.
func NewCexp() *Cexp { return &Cexp{} }

// Spec returns the parameter schema.
func (g *Cexp) Spec() param.Spec {
	return param.Spec{
		Generator:   HandleCexp,
		Description: "generator returns samples of a complex exponential exp(j*2*pi*phase(t)) where t = time",
		Fields: []param.Field{
			{
				Name:        "num_samples",
				Description: "total duration of time-series in samples",
				Required:    true,
				Minimum:     param.Bound(1),
			},
			{
				Name:        "frame",
				Description: "number of time-samples in each generated signal frame",
				Default:     10,
				Minimum:     param.Bound(1),
			},
			{
				Name:        "phase_initial",
				Description: "phase of first time-sample as fraction of 2*pi, in the range +-0.5",
				Default:     0.0,
				Minimum:     param.Bound(-0.5),
				Maximum:     param.Bound(0.5),
			},
			{
				Name:        "phase_increment",
				Description: "phase advance per sample as fraction of 2*pi; by sampling theorem, must be in the range +-0.5",
				Required:    true,
				Minimum:     param.Bound(-0.5),
				Maximum:     param.Bound(0.5),
			},
		},
	}
}

// Configure decodes values and restarts the run.
func (g *Cexp) Configure(values map[string]any) (demux.Payload, error) {
	var p CexpParams
	if err := param.Decode(values, &p); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("num_samples", p.NumSamples); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("frame", p.Frame); err != nil {
		return demux.Payload{}, err
	}
	g.params = p
	g.run.start(p.NumSamples)
	return demux.Payload{
		DataType:    demux.DataComplex,
		ArrayShapes: []demux.Shape{{p.Frame}},
	}, nil
}

// Params returns the resolved parameters of the current run.
func (g *Cexp) Params() CexpParams { return g.params }

// NextBatch returns the next frame; the last frame may be short.
func (g *Cexp) NextBatch(ctx context.Context) ([]complex128, error) {
	start, n, err := g.run.next(ctx, g.params.Frame)
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]complex128, n)
	for i := range out {
		t := float64(start + i)
		s, c := math.Sincos(2 * math.Pi * (g.params.PhaseInitial + g.params.PhaseIncrement*t))
		out[i] = complex(c, s)
	}
	return out, nil
}
