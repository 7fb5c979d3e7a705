package transport

import (
	"encoding/json"

	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/types"
)

// Kind identifies a wire message.
type Kind string

const (
	KindConfig Kind = "config"
	KindInfo   Kind = "info"
	KindSample Kind = "sample"
	KindEnd    Kind = "end"
	KindError  Kind = "error"
)

// Complex is the wire form of one complex sample.
type Complex struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// Message is the envelope exchanged by every transport.
type Message struct {
	Type    Kind            `json:"type"`
	Config  *session.Config `json:"config,omitempty"`
	Info    *session.Info   `json:"info,omitempty"`
	Real    []float64       `json:"real,omitempty"`
	Complex []Complex       `json:"complex,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    types.ErrorCode `json:"code,omitempty"`
}

// ConfigMessage wraps a coordination request.
func ConfigMessage(c session.Config) Message {
	return Message{Type: KindConfig, Config: &c}
}

// InfoMessage wraps a coordination answer.
func InfoMessage(i session.Info) Message {
	return Message{Type: KindInfo, Info: &i}
}

// EndMessage marks the end of a stream.
func EndMessage() Message { return Message{Type: KindEnd} }

// ErrorMessage reports a failure to the peer.
func ErrorMessage(err error) Message {
	if e, ok := types.AsError(err); ok {
		return Message{Type: KindError, Error: e.Message, Code: e.Code}
	}
	return Message{Type: KindError, Error: err.Error(), Code: types.ErrTransport}
}

// FrameMessage wraps a streamed frame.
func FrameMessage(f session.Frame) Message {
	m := Message{Type: KindSample, Real: f.Real}
	if len(f.Complex) > 0 {
		m.Complex = make([]Complex, len(f.Complex))
		for i, v := range f.Complex {
			m.Complex[i] = Complex{Real: real(v), Imag: imag(v)}
		}
	}
	return m
}

// RealMessage wraps a batch of real samples.
func RealMessage(vals []float64) Message { return FrameMessage(session.Frame{Real: vals}) }

// ComplexMessage wraps a batch of complex samples.
func ComplexMessage(vals []complex128) Message {
	return FrameMessage(session.Frame{Complex: vals})
}

// Err returns the error carried by an error message.
func (m Message) Err() error {
	if m.Type != KindError {
		return nil
	}
	code := m.Code
	if code == "" {
		code = types.ErrTransport
	}
	return types.NewError(code, m.Error)
}

// RealBatch extracts real samples from a sample message.
func (m Message) RealBatch() ([]float64, error) {
	if err := m.sample(); err != nil {
		return nil, err
	}
	if len(m.Complex) > 0 || len(m.Real) == 0 {
		return nil, types.NewProtocolError("expected real samples")
	}
	return m.Real, nil
}

// ComplexBatch extracts complex samples from a sample message.
func (m Message) ComplexBatch() ([]complex128, error) {
	if err := m.sample(); err != nil {
		return nil, err
	}
	if len(m.Real) > 0 || len(m.Complex) == 0 {
		return nil, types.NewProtocolError("expected complex samples")
	}
	out := make([]complex128, len(m.Complex))
	for i, c := range m.Complex {
		out[i] = complex(c.Real, c.Imag)
	}
	return out, nil
}

func (m Message) sample() error {
	if m.Type != KindSample {
		return types.NewProtocolError("unexpected message %q", m.Type)
	}
	return nil
}

// Encode serializes a message.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, types.NewError(types.ErrTransport, "encode message").WithCause(err)
	}
	return data, nil
}

// Decode parses a message; unknown kinds are protocol violations.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, types.NewProtocolError("malformed message").WithCause(err)
	}
	switch m.Type {
	case KindConfig:
		if m.Config == nil {
			return Message{}, types.NewProtocolError("config message without request")
		}
	case KindInfo:
		if m.Info == nil {
			return Message{}, types.NewProtocolError("info message without answer")
		}
	case KindSample, KindEnd, KindError:
	default:
		return Message{}, types.NewProtocolError("unexpected message %q", m.Type)
	}
	return m, nil
}

// Batch extracts typed samples from a sample message. It is the generic
// counterpart of RealBatch and ComplexBatch used by stream producers.
func Batch[T float64 | complex128](m Message) ([]T, error) {
	var zero T
	switch any(zero).(type) {
	case float64:
		v, err := m.RealBatch()
		return any(v).([]T), err
	default:
		v, err := m.ComplexBatch()
		return any(v).([]T), err
	}
}
