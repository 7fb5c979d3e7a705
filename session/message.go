package session

import (
	"encoding/json"

	"github.com/BaSui01/seriesflow/types"
)

// Coordination operations.
const (
	OpServiceTypes  = "service_types?"
	OpServiceChoice = "service_choice"
	OpSet           = "set"
	OpGet           = "get"
)

// Config is a coordination request from client to server.
type Config struct {
	Operation  string          `json:"operation"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// NewConfig encodes params into a request.
func NewConfig(op string, params any) (Config, error) {
	if params == nil {
		return Config{Operation: op}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Config{}, types.NewError(types.ErrInvalidArgument, "encode parameters").WithCause(err)
	}
	return Config{Operation: op, Parameters: raw}, nil
}

// Info is the server's answer. Alert carries information the client did not
// ask for, typically why a request was refused; Code classifies it.
type Info struct {
	Response json.RawMessage `json:"response,omitempty"`
	Alert    string          `json:"alert,omitempty"`
	Code     types.ErrorCode `json:"code,omitempty"`
}

// Err converts an alert into a typed error; nil when there is no alert.
func (i Info) Err() error {
	if i.Alert == "" {
		return nil
	}
	code := i.Code
	if code == "" {
		code = types.ErrInvalidState
	}
	return types.NewError(code, i.Alert)
}

// Decode unmarshals the response into out.
func (i Info) Decode(out any) error {
	if len(i.Response) == 0 {
		return types.NewProtocolError("empty response")
	}
	if err := json.Unmarshal(i.Response, out); err != nil {
		return types.NewProtocolError("malformed response").WithCause(err)
	}
	return nil
}

// ServiceTypes is the response to OpServiceTypes.
type ServiceTypes struct {
	ServiceType map[string]string `json:"service_type"`
}

// ServiceChoice is the parameter object of OpServiceChoice.
type ServiceChoice struct {
	ServiceChoice string `json:"service_choice"`
}

// Frame is one streamed message: a run of consecutive samples of a single
// data type.
type Frame struct {
	Real    []float64
	Complex []complex128
}

// Len returns the number of samples in the frame.
func (f Frame) Len() int { return len(f.Real) + len(f.Complex) }
