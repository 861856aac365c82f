// Package facts implements the fact-pattern resolution protocol shared by
// every fact service: a caller POSTs a partial fact (constants mixed with
// ?-variables), the service consults one backend, and the resolved bindings
// come back in a fixed envelope.
package facts

import "fmt"

// VariableSigil marks a pattern value as a variable reference.
const VariableSigil = "?"

// Kind is the expected JSON type of a required constant.
type Kind string

// Constant kinds.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
)

// ConstantSpec declares one required constant key of a schema.
type ConstantSpec struct {
	key  string
	kind Kind
}

// RequiredConstant declares a required constant key with its expected kind.
// The kind is enforced at validation time and named in the error message.
func RequiredConstant(key string, kind Kind) ConstantSpec {
	return ConstantSpec{key: key, kind: kind}
}

// RequiredKey declares a required constant key with no kind check. The value
// passes through to the backend as decoded.
func RequiredKey(key string) ConstantSpec {
	return ConstantSpec{key: key}
}

// Key returns the constant key.
func (c ConstantSpec) Key() string { return c.key }

// ConstantKind returns the expected kind of the constant value.
func (c ConstantSpec) ConstantKind() Kind { return c.kind }

// Schema is the immutable per-service description of a queryable predicate:
// which keys must arrive as constants and which properties may be requested
// as variables. Built once at startup, safe for concurrent reads.
type Schema struct {
	constants  []ConstantSpec
	properties map[string]struct{}
}

// NewSchema validates and creates a Schema.
// Constant keys must not appear in the property set.
func NewSchema(constants []ConstantSpec, properties []string) (Schema, error) {
	props := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		if p == "" {
			return Schema{}, fmt.Errorf("empty property name")
		}
		props[p] = struct{}{}
	}
	for _, c := range constants {
		if c.key == "" {
			return Schema{}, fmt.Errorf("empty constant key")
		}
		if _, ok := props[c.key]; ok {
			return Schema{}, fmt.Errorf("key %q is both a constant and a property", c.key)
		}
	}
	return Schema{constants: constants, properties: props}, nil
}

// MustSchema creates a Schema or panics. For process-start schema literals.
func MustSchema(constants []ConstantSpec, properties []string) Schema {
	s, err := NewSchema(constants, properties)
	if err != nil {
		panic(err)
	}
	return s
}

// Constants returns the required constant specs in declaration order.
func (s Schema) Constants() []ConstantSpec { return s.constants }

// IsLegalProperty reports whether name may be requested as a variable.
func (s Schema) IsLegalProperty(name string) bool {
	_, ok := s.properties[name]
	return ok
}
