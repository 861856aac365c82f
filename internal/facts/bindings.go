package facts

// Record is the flat property->value mapping produced by one backend fetch.
// Numeric values should be stored as Number so they serialize under the
// fixed-point contract.
type Record map[string]any

// Bindings maps the caller's variable names (sigil included) to resolved
// values. Built fresh per request, never shared.
type Bindings map[string]any

// Resolve maps the pattern's variables onto rec. The policy is
// all-or-nothing: if any requested property is absent from rec the whole
// binding set is discarded and ok is false. Partial bindings would be
// meaningless to a caller expecting every slot filled.
func Resolve(p Pattern, rec Record) (Bindings, bool) {
	bindings := make(Bindings, len(p.Variables()))
	for _, v := range p.Variables() {
		val, ok := rec[v.Property()]
		if !ok {
			return nil, false
		}
		bindings[v.Name()] = val
	}
	return bindings, true
}
