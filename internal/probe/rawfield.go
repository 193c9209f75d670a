package probe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldState says how a loosely-typed upstream field was found.
type FieldState int

const (
	// FieldAbsent: the key is missing or null.
	FieldAbsent FieldState = iota
	// FieldTyped: the value has the requested JSON type.
	FieldTyped
	// FieldCoerced: the value is a string that parses as the requested type.
	// Coordination status tools report most numbers this way.
	FieldCoerced
	// FieldMistyped: the value is present but cannot be read as requested.
	FieldMistyped
)

// Usable reports whether the value can be used.
func (s FieldState) Usable() bool {
	return s == FieldTyped || s == FieldCoerced
}

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldTyped:
		return "typed"
	case FieldCoerced:
		return "coerced"
	default:
		return "mistyped"
	}
}

// RawField is one upstream value whose type is not trusted.
type RawField struct {
	raw json.RawMessage
}

// Field returns the first of keys present in m, or an absent field.
// Several keys cover the different names upstream versions use.
func Field(m map[string]json.RawMessage, keys ...string) RawField {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isNull(v) {
			return RawField{raw: v}
		}
	}
	return RawField{}
}

// State reports whether the field is present.
func (f RawField) State() FieldState {
	if len(f.raw) == 0 || isNull(f.raw) {
		return FieldAbsent
	}
	return FieldTyped
}

// String reads a JSON string. Numbers and booleans are rendered and reported
// as coerced; objects and arrays are mistyped.
func (f RawField) String() (string, FieldState) {
	switch f.kind() {
	case 0:
		return "", FieldAbsent
	case '"':
		var s string
		if err := json.Unmarshal(f.raw, &s); err != nil {
			return "", FieldMistyped
		}
		return s, FieldTyped
	case 'n', 't', 'f':
		return string(bytes.TrimSpace(f.raw)), FieldCoerced
	default:
		return "", FieldMistyped
	}
}

// Bool reads a JSON boolean; "true"/"false" strings are coerced.
func (f RawField) Bool() (bool, FieldState) {
	switch f.kind() {
	case 0:
		return false, FieldAbsent
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(f.raw, &b); err != nil {
			return false, FieldMistyped
		}
		return b, FieldTyped
	case '"':
		s, _ := f.String()
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, FieldMistyped
		}
		return b, FieldCoerced
	default:
		return false, FieldMistyped
	}
}

// Int reads an integral JSON number; numeric strings are coerced. Fractional
// values are truncated.
func (f RawField) Int() (int64, FieldState) {
	v, st := f.Float()
	if !st.Usable() {
		return 0, st
	}
	return int64(v), st
}

// Float reads a JSON number; numeric strings are coerced.
func (f RawField) Float() (float64, FieldState) {
	switch f.kind() {
	case 0:
		return 0, FieldAbsent
	case 'n':
		var v float64
		if err := json.Unmarshal(f.raw, &v); err != nil {
			return 0, FieldMistyped
		}
		return v, FieldTyped
	case '"':
		s, _ := f.String()
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, FieldMistyped
		}
		return v, FieldCoerced
	default:
		return 0, FieldMistyped
	}
}

// Object reads a JSON object as a raw map.
func (f RawField) Object() (map[string]json.RawMessage, FieldState) {
	if f.kind() == 0 {
		return nil, FieldAbsent
	}
	if f.kind() != '{' {
		return nil, FieldMistyped
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(f.raw, &m); err != nil {
		return nil, FieldMistyped
	}
	return m, FieldTyped
}

// Array reads a JSON array of raw elements.
func (f RawField) Array() ([]json.RawMessage, FieldState) {
	if f.kind() == 0 {
		return nil, FieldAbsent
	}
	if f.kind() != '[' {
		return nil, FieldMistyped
	}
	var a []json.RawMessage
	if err := json.Unmarshal(f.raw, &a); err != nil {
		return nil, FieldMistyped
	}
	return a, FieldTyped
}

// kind returns the JSON value class: '"', '{', '[', 't', 'f', 'n' for
// numbers, or 0 when absent. null counts as absent.
func (f RawField) kind() byte {
	b := bytes.TrimSpace(f.raw)
	if len(b) == 0 || isNull(b) {
		return 0
	}
	switch c := b[0]; c {
	case '"', '{', '[', 't', 'f':
		return c
	default:
		return 'n'
	}
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
