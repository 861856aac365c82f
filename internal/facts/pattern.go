package facts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Entry is one key/value pair of the raw request object, in body order.
// Key order matters: it decides which validation error surfaces first and
// the order variables are resolved in.
type Entry struct {
	Key   string
	Value any
}

// ParseObject decodes a JSON object into its entries, preserving the order
// keys appear in the body. A duplicate key keeps its first position but
// takes the last value, matching ordinary object-decode semantics.
func ParseObject(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse pattern: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("pattern must be a JSON object")
	}

	var entries []Entry
	pos := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse pattern key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parse pattern: unexpected token %v", keyTok)
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("parse pattern value for %q: %w", key, err)
		}

		if i, seen := pos[key]; seen {
			entries[i].Value = val
			continue
		}
		pos[key] = len(entries)
		entries = append(entries, Entry{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse pattern: %w", err)
	}
	return entries, nil
}

// Variable is a requested output slot: the queried property and the
// caller's literal variable text, sigil included. The response envelope
// echoes the name exactly as the caller wrote it.
type Variable struct {
	property string
	name     string
}

// Property returns the backend property this variable binds to.
func (v Variable) Property() string { return v.property }

// Name returns the caller's variable text, including the sigil.
func (v Variable) Name() string { return v.name }

// Pattern is a validated query: constants feed the backend fetch, variables
// name the outputs. Built by NewPattern; downstream code never re-inspects
// raw strings for the sigil.
type Pattern struct {
	constants map[string]any
	variables []Variable
}

// Constants returns the coerced required-constant values keyed by name.
func (p Pattern) Constants() map[string]any { return p.constants }

// Variables returns the requested variables in body order.
func (p Pattern) Variables() []Variable { return p.variables }

// NewPattern validates raw entries against schema. Required constants are
// checked first, in schema order; every remaining key must be a legal
// property carrying a ?-variable, checked in body order. The first failure
// wins. No backend is touched here.
func NewPattern(entries []Entry, schema Schema) (Pattern, error) {
	byKey := make(map[string]any, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e.Value
	}

	constants := make(map[string]any, len(schema.Constants()))
	for _, spec := range schema.Constants() {
		raw, ok := byKey[spec.Key()]
		if !ok {
			return Pattern{}, &MissingConstantError{Key: spec.Key(), Kind: spec.ConstantKind()}
		}
		val, err := coerceConstant(spec, raw)
		if err != nil {
			return Pattern{}, err
		}
		constants[spec.Key()] = val
	}

	var variables []Variable
	for _, e := range entries {
		if _, isConstant := constants[e.Key]; isConstant {
			continue
		}
		if !schema.IsLegalProperty(e.Key) {
			return Pattern{}, &IllegalPropertyError{Key: e.Key}
		}
		name, ok := e.Value.(string)
		if !ok || !strings.HasPrefix(name, VariableSigil) {
			return Pattern{}, &NotAVariableError{Key: e.Key, Value: e.Value}
		}
		if len(name) < len(VariableSigil)+1 {
			return Pattern{}, &EmptyVariableNameError{Key: e.Key}
		}
		variables = append(variables, Variable{property: e.Key, name: name})
	}

	return Pattern{constants: constants, variables: variables}, nil
}

func coerceConstant(spec ConstantSpec, raw any) (any, error) {
	switch spec.ConstantKind() {
	case KindNumber:
		n, ok := raw.(float64)
		if !ok {
			return nil, &ConstantKindError{Key: spec.Key(), Kind: KindNumber}
		}
		return n, nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, &ConstantKindError{Key: spec.Key(), Kind: KindString}
		}
		return s, nil
	default:
		return raw, nil
	}
}
