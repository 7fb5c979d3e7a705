package generator

import (
	"context"
	"math"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
)

// HandleSinusoids is the registry handle of the multiplexed sinusoid
// generator.
const HandleSinusoids = "sinusoids"

// SinusoidsParams are the resolved parameters of Sinusoids.
type SinusoidsParams struct {
	NumCycles int     `json:"num_cycles"`
	Frame     int     `json:"frame"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// Sinusoids emits Count real sinusoids multiplexed round-robin: each batch is
// one cycle holding Frame samples of series 0, then series 1, and so on.
// Series i runs at (i+1)*Frequency cycles per sample.
type Sinusoids struct {
	params SinusoidsParams
	run    run
}

// NewSinusoids returns an unconfigured generator.
func NewSinusoids() *Sinusoids { return &Sinusoids{} }

// Spec returns the parameter schema.
func (g *Sinusoids) Spec() param.Spec {
	return param.Spec{
		Generator:   HandleSinusoids,
		Description: "generator returns several real sinusoids at harmonic frequencies, multiplexed one frame per series",
		Fields: []param.Field{
			{Name: "num_cycles", Description: "number of multiplexed cycles to generate", Required: true, Minimum: param.Bound(1)},
			{Name: "frame", Description: "samples per series in each cycle", Default: 10, Minimum: param.Bound(1)},
			{Name: "count", Description: "number of sinusoids", Default: 2, Minimum: param.Bound(1), Maximum: param.Bound(16)},
			{Name: "frequency", Description: "fundamental frequency in cycles per sample", Default: 0.01, Minimum: param.Bound(-0.5), Maximum: param.Bound(0.5)},
		},
	}
}

// Configure decodes values and restarts the run.
func (g *Sinusoids) Configure(values map[string]any) (demux.Payload, error) {
	var p SinusoidsParams
	if err := param.Decode(values, &p); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("num_cycles", p.NumCycles); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("frame", p.Frame); err != nil {
		return demux.Payload{}, err
	}
	if err := atLeastOne("count", p.Count); err != nil {
		return demux.Payload{}, err
	}
	g.params = p
	g.run.start(p.NumCycles)

	shapes := make([]demux.Shape, p.Count)
	for i := range shapes {
		shapes[i] = demux.Shape{p.Frame}
	}
	return demux.Payload{DataType: demux.DataReal, ArrayShapes: shapes}, nil
}

// Params returns the resolved parameters of the current run.
func (g *Sinusoids) Params() SinusoidsParams { return g.params }

// NextBatch returns the next cycle.
func (g *Sinusoids) NextBatch(ctx context.Context) ([]float64, error) {
	cycle, n, err := g.run.next(ctx, 1)
	if err != nil || n == 0 {
		return nil, err
	}
	p := g.params
	out := make([]float64, 0, p.Count*p.Frame)
	for k := 0; k < p.Count; k++ {
		f := p.Frequency * float64(k+1)
		for i := 0; i < p.Frame; i++ {
			t := float64(cycle*p.Frame + i)
			out = append(out, math.Sin(2*math.Pi*f*t))
		}
	}
	return out, nil
}
