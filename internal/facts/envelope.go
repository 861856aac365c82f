package facts

import "strconv"

// Number is a numeric binding value. It marshals fixed-point with a decimal
// point always present so the calling rule engine can rely on one numeric
// shape ("3" never appears where "3.0" is meant).
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	b := strconv.AppendFloat(nil, float64(n), 'f', -1, 64)
	for _, c := range b {
		if c == '.' || c == 'e' || c == 'E' {
			return b, nil
		}
	}
	return append(b, '.', '0'), nil
}

// Match is one element of the Found array. Bindingss holds either exactly
// one complete binding set or nothing at all.
type Match struct {
	Bindingss []Bindings `json:"Bindingss"`
}

// Result is the success envelope: {"Found":[{"Bindingss":[...]}]}.
type Result struct {
	Found []Match `json:"Found"`
}

// FoundResult builds the envelope for a fully resolved binding set.
func FoundResult(b Bindings) Result {
	return Result{Found: []Match{{Bindingss: []Bindings{b}}}}
}

// EmptyResult builds the unsatisfied envelope: Bindingss is present but
// empty. This is a successful resolution that found nothing, not an error.
func EmptyResult() Result {
	return Result{Found: []Match{{Bindingss: []Bindings{}}}}
}

// ErrorEnvelope is the failure envelope: {"Error":"<message>"}. Callers
// distinguish it from Result by body shape, never by HTTP status.
type ErrorEnvelope struct {
	Error string `json:"Error"`
}
