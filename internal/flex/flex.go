// Package flex holds JSON boundary types for payloads whose fields are
// sometimes a scalar, sometimes a list and sometimes absent. Values are
// decoded leniently and exposed in one shape.
package flex

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Strings decodes a string, a number, a list of those, or null. A scalar
// becomes a one-element list; null and the empty list become nil. Non-string
// list members are kept in their JSON text form.
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(Strings, 0, len(raw))
		for _, item := range raw {
			if v, ok := scalarString(item); ok {
				out = append(out, v)
			}
		}
		if len(out) == 0 {
			out = nil
		}
		*s = out
		return nil
	}

	if v, ok := scalarString(data); ok {
		*s = Strings{v}
		return nil
	}
	*s = nil
	return nil
}

// First returns the first non-blank element or the empty string.
func (s Strings) First() string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Values returns the non-blank elements, never nil.
func (s Strings) Values() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// String decodes like Strings and keeps the first element.
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	var list Strings
	if err := list.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = String(list.First())
	return nil
}

// Number decodes a JSON number or a numeric string. Anything else leaves
// Valid false.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		str = strings.TrimSuffix(strings.TrimSpace(str), "%")
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			*n = Number{Value: f, Valid: true}
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Objects decodes a list of values or a single non-null value into a list of
// raw members, so that callers can decode each member on its own and skip
// the ones with an unexpected shape.
type Objects []json.RawMessage

func (o *Objects) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*o = raw
		return nil
	}
	*o = Objects{json.RawMessage(append([]byte(nil), data...))}
	return nil
}

// Present reports whether raw holds a value that is not null, "", [] or {}.
func Present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", `""`, "[]", "{}":
		return false
	}
	if raw[0] == '[' || raw[0] == '{' {
		compact := new(bytes.Buffer)
		if err := json.Compact(compact, raw); err == nil {
			switch compact.String() {
			case "[]", "{}":
				return false
			}
		}
	}
	return true
}

func scalarString(data json.RawMessage) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return "", false
		}
		return v, true
	case '{', '[', 'n':
		return "", false
	default:
		// numbers and booleans
		return string(data), true
	}
}
