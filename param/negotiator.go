package param

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"

	"github.com/BaSui01/seriesflow/types"
)

// =============================================================================
// 📋 参数模式
// =============================================================================

// Field describes one negotiable parameter.
type Field struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// hasDefault reports whether the field contributes to the default map. A
// required field contributes a null default.
func (f Field) hasDefault() bool {
	return f.Required || f.Default != nil
}

// Spec is an ordered parameter schema. Field order is the order in which
// Complete and Bounds report problems.
type Spec struct {
	Generator   string  `json:"generator" yaml:"generator"`
	Description string  `json:"description" yaml:"description"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Field looks up a field by name.
func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Bound is a helper for building Minimum / Maximum.
func Bound(v float64) *float64 { return &v }

// =============================================================================
// 🔄 状态机
// =============================================================================

// State is the negotiation stage.
type State int

const (
	StateUnset State = iota
	StateSpecLoaded
	StateOverridden
	StateValidated
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateSpecLoaded:
		return "spec_loaded"
	case StateOverridden:
		return "overridden"
	case StateValidated:
		return "validated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Violation names the first offending field and why.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error renders the violation as an error.
func (v *Violation) Error() string {
	return fmt.Sprintf("parameter %q: %s", v.Field, v.Reason)
}

// Err converts the violation to a typed error; nil stays nil.
func (v *Violation) Err(code types.ErrorCode) error {
	if v == nil {
		return nil
	}
	return types.NewError(code, v.Reason).WithField(v.Field)
}

// Negotiator holds a parameter schema, its defaults and the working values
// produced by overriding them. It never aborts on its own; callers decide
// what to do with a Violation.
type Negotiator struct {
	spec     Spec
	defaults map[string]any
	working  map[string]any
	state    State
}

// NewNegotiator returns an empty negotiator in StateUnset.
func NewNegotiator() *Negotiator {
	return &Negotiator{}
}

// Set stores the schema and derives the default map.
func (n *Negotiator) Set(spec Spec) {
	n.spec = spec
	n.defaults = make(map[string]any, len(spec.Fields))
	for _, f := range spec.Fields {
		if !f.hasDefault() {
			continue
		}
		if f.Required {
			n.defaults[f.Name] = nil
		} else {
			n.defaults[f.Name] = f.Default
		}
	}
	n.working = maps.Clone(n.defaults)
	n.state = StateSpecLoaded
}

// Spec returns the stored schema.
func (n *Negotiator) Spec() Spec { return n.spec }

// Defaults returns a copy of the default map.
func (n *Negotiator) Defaults() map[string]any {
	return maps.Clone(n.defaults)
}

// Update sets the working values to the defaults overridden by overrides.
// Keys absent from the default map are not introduced; they are returned so
// the caller can report them.
func (n *Negotiator) Update(overrides map[string]any) (ignored []string) {
	n.working = maps.Clone(n.defaults)
	if n.working == nil {
		n.working = map[string]any{}
	}
	// 按模式顺序应用覆盖值，保证 ignored 之外的结果与 map 迭代顺序无关
	for _, f := range n.spec.Fields {
		if v, ok := overrides[f.Name]; ok {
			if _, known := n.defaults[f.Name]; known {
				n.working[f.Name] = v
			}
		}
	}
	for k := range overrides {
		if _, known := n.defaults[k]; !known {
			ignored = append(ignored, k)
		}
	}
	if n.state != StateUnset {
		n.state = StateOverridden
	}
	return ignored
}

// Complete returns the first field, in schema order, whose value is still
// null.
func (n *Negotiator) Complete() *Violation {
	for _, f := range n.spec.Fields {
		v, ok := n.working[f.Name]
		if ok && v == nil {
			return &Violation{Field: f.Name, Reason: "must be specified"}
		}
	}
	return nil
}

// Bounds returns the first field, in schema order, whose value falls outside
// its declared minimum or maximum. Null values are left to Complete.
func (n *Negotiator) Bounds() *Violation {
	for _, f := range n.spec.Fields {
		if f.Minimum == nil && f.Maximum == nil {
			continue
		}
		v, ok := n.working[f.Name]
		if !ok || v == nil {
			continue
		}
		x, ok := toFloat(v)
		if !ok {
			return &Violation{Field: f.Name, Reason: fmt.Sprintf("value %v is not numeric", v)}
		}
		if f.Minimum != nil && x < *f.Minimum {
			return &Violation{Field: f.Name, Reason: fmt.Sprintf("value %v below minimum %v", v, *f.Minimum)}
		}
		if f.Maximum != nil && x > *f.Maximum {
			return &Violation{Field: f.Name, Reason: fmt.Sprintf("value %v above maximum %v", v, *f.Maximum)}
		}
	}
	return nil
}

// Validate runs Complete then Bounds and moves to StateValidated when both
// pass.
func (n *Negotiator) Validate() *Violation {
	if v := n.Complete(); v != nil {
		return v
	}
	if v := n.Bounds(); v != nil {
		return v
	}
	if n.state == StateOverridden {
		n.state = StateValidated
	}
	return nil
}

// Final returns a copy of the resolved values. Before Update it returns the
// unmodified defaults.
func (n *Negotiator) Final() map[string]any {
	if n.working == nil {
		return map[string]any{}
	}
	return maps.Clone(n.working)
}

// State returns the negotiation stage.
func (n *Negotiator) State() State { return n.state }

// Decode populates out, a pointer to a struct with json tags, from Final.
func (n *Negotiator) Decode(out any) error {
	return Decode(n.Final(), out)
}

// Decode converts a resolved parameter map into a typed configuration
// struct.
func Decode(values map[string]any, out any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewError(types.ErrInvalidArgument, "parameters do not fit the configuration").WithCause(err)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
