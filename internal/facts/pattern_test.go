package facts

import (
	"errors"
	"strings"
	"testing"
)

func quoteSchema(t *testing.T) Schema {
	t.Helper()
	s, err := NewSchema(
		[]ConstantSpec{RequiredKey("symbol")},
		[]string{"bid", "ask", "change", "percentChange", "lastTradeSize"},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func addSchema(t *testing.T) Schema {
	t.Helper()
	s, err := NewSchema(
		[]ConstantSpec{
			RequiredConstant("x", KindNumber),
			RequiredConstant("y", KindNumber),
		},
		[]string{"z"},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func parse(t *testing.T, body string) []Entry {
	t.Helper()
	entries, err := ParseObject(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseObject(%q): %v", body, err)
	}
	return entries
}

// --- ParseObject ---

func TestParseObject_PreservesKeyOrder(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA","bid":"?b","ask":"?a"}`)

	want := []string{"symbol", "bid", "ask"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, k := range want {
		if entries[i].Key != k {
			t.Errorf("entry %d: expected key %q, got %q", i, k, entries[i].Key)
		}
	}
}

func TestParseObject_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	entries := parse(t, `{"a":1,"b":2,"a":3}`)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "a" || entries[0].Value != float64(3) {
		t.Errorf("expected a=3 first, got %s=%v", entries[0].Key, entries[0].Value)
	}
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"text"`, `42`, ``, `{`} {
		if _, err := ParseObject(strings.NewReader(body)); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

// --- NewPattern ---

func TestNewPattern_SplitsConstantsAndVariables(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA","bid":"?b","ask":"?a"}`)

	p, err := NewPattern(entries, quoteSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.Constants()["symbol"]; got != "CMCSA" {
		t.Errorf("expected symbol constant CMCSA, got %v", got)
	}
	vars := p.Variables()
	if len(vars) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(vars))
	}
	if vars[0].Property() != "bid" || vars[0].Name() != "?b" {
		t.Errorf("unexpected first variable: %s -> %s", vars[0].Property(), vars[0].Name())
	}
	if vars[1].Property() != "ask" || vars[1].Name() != "?a" {
		t.Errorf("unexpected second variable: %s -> %s", vars[1].Property(), vars[1].Name())
	}
}

func TestNewPattern_MissingConstant(t *testing.T) {
	entries := parse(t, `{"bid":"?b"}`)

	_, err := NewPattern(entries, quoteSchema(t))

	var missing *MissingConstantError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingConstantError, got %v", err)
	}
	if missing.Key != "symbol" {
		t.Errorf("expected key symbol, got %q", missing.Key)
	}
	if !errors.Is(err, ErrInvalidPattern) {
		t.Error("expected error to wrap ErrInvalidPattern")
	}
}

func TestNewPattern_MissingConstantWinsOverIllegalProperty(t *testing.T) {
	// Constants are checked before properties, so the missing symbol
	// surfaces even though nonsense is also illegal.
	entries := parse(t, `{"nonsense":"?v"}`)

	_, err := NewPattern(entries, quoteSchema(t))

	var missing *MissingConstantError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingConstantError, got %v", err)
	}
}

func TestNewPattern_ConstantsCheckedInSchemaOrder(t *testing.T) {
	entries := parse(t, `{"z":"?z"}`)

	_, err := NewPattern(entries, addSchema(t))

	var missing *MissingConstantError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingConstantError, got %v", err)
	}
	if missing.Key != "x" {
		t.Errorf("expected first schema constant x to surface, got %q", missing.Key)
	}
}

func TestNewPattern_IllegalProperty(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA","volume":"?v"}`)

	_, err := NewPattern(entries, quoteSchema(t))

	var illegal *IllegalPropertyError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalPropertyError, got %v", err)
	}
	if illegal.Key != "volume" {
		t.Errorf("expected key volume, got %q", illegal.Key)
	}
}

func TestNewPattern_FirstIllegalPropertyInBodyOrderWins(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA","wrong1":"?a","wrong2":"?b"}`)

	_, err := NewPattern(entries, quoteSchema(t))

	var illegal *IllegalPropertyError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalPropertyError, got %v", err)
	}
	if illegal.Key != "wrong1" {
		t.Errorf("expected wrong1 (first in body), got %q", illegal.Key)
	}
}

func TestNewPattern_NotAVariable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no sigil", `{"symbol":"CMCSA","bid":"b"}`},
		{"number value", `{"symbol":"CMCSA","bid":1.5}`},
		{"null value", `{"symbol":"CMCSA","bid":null}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPattern(parse(t, tc.body), quoteSchema(t))

			var nav *NotAVariableError
			if !errors.As(err, &nav) {
				t.Fatalf("expected NotAVariableError, got %v", err)
			}
			if nav.Key != "bid" {
				t.Errorf("expected key bid, got %q", nav.Key)
			}
		})
	}
}

func TestNewPattern_EmptyVariableName(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA","bid":"?"}`)

	_, err := NewPattern(entries, quoteSchema(t))

	var empty *EmptyVariableNameError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyVariableNameError, got %v", err)
	}
	if empty.Key != "bid" {
		t.Errorf("expected key bid, got %q", empty.Key)
	}
}

func TestNewPattern_NumberConstantCoercion(t *testing.T) {
	entries := parse(t, `{"x":1,"y":2,"z":"?z"}`)

	p, err := NewPattern(entries, addSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Constants()["x"] != float64(1) || p.Constants()["y"] != float64(2) {
		t.Errorf("expected numeric constants, got %v", p.Constants())
	}
}

func TestNewPattern_ConstantKindMismatch(t *testing.T) {
	entries := parse(t, `{"x":"one","y":2,"z":"?z"}`)

	_, err := NewPattern(entries, addSchema(t))

	var kindErr *ConstantKindError
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected ConstantKindError, got %v", err)
	}
	if kindErr.Key != "x" {
		t.Errorf("expected key x, got %q", kindErr.Key)
	}
}

func TestNewPattern_NoVariablesIsValid(t *testing.T) {
	entries := parse(t, `{"symbol":"CMCSA"}`)

	p, err := NewPattern(entries, quoteSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Variables()) != 0 {
		t.Errorf("expected no variables, got %d", len(p.Variables()))
	}
}

// --- Schema ---

func TestNewSchema_RejectsOverlap(t *testing.T) {
	_, err := NewSchema(
		[]ConstantSpec{RequiredConstant("temp", KindString)},
		[]string{"temp"},
	)
	if err == nil {
		t.Fatal("expected error for key that is both constant and property")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&MissingConstantError{Key: "symbol"}, "Need symbol."},
		{&MissingConstantError{Key: "x", Kind: KindNumber}, "Need x (constant: number)."},
		{&MissingConstantError{Key: "locale", Kind: KindString}, "Need locale (constant: string)."},
		{&IllegalPropertyError{Key: "volume"}, "Illegal property volume."},
		{&NotAVariableError{Key: "bid", Value: "b"}, "Value b must be a variable."},
		{&EmptyVariableNameError{Key: "temp"}, "Need a named variable for temp."},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("unexpected message:\ngot:  %q\nwant: %q", got, tc.want)
		}
	}
}
